package userservice

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sushihentaime/markpress/internal/common"
)

func validateName(v *common.Validator, name string) {
	v.Check(name != "", "name", "must be provided")
	v.Check(v.CheckStringLength(name, 0, MaxNameLength), "name", fmt.Sprintf("must not be more than %d characters long", MaxNameLength))
}

// cleanSocialLinks keeps known platforms with a non-blank URL. The URLs
// themselves are not validated.
func cleanSocialLinks(links map[string]string) map[string]string {
	out := make(map[string]string, len(links))
	for platform, url := range links {
		platform = strings.ToLower(strings.TrimSpace(platform))
		url = strings.TrimSpace(url)
		if url == "" || !slices.Contains(Platforms, platform) {
			continue
		}
		out[platform] = url
	}
	return out
}
