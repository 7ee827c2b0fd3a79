package blogservice

import (
	"fmt"

	"github.com/sushihentaime/markpress/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 0, MaxTitleLength), "title", fmt.Sprintf("must not be more than %d characters long", MaxTitleLength))
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}
