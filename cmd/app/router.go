package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/health", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", app.metricsHandler())

	// profile service
	router.HandlerFunc(http.MethodPost, "/v1/signup", app.signUpHandler)
	router.HandlerFunc(http.MethodPost, "/v1/login", app.loginHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users/:id", app.getUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/:id", app.requireAuthUser(app.updateUserHandler))

	// content service
	router.HandlerFunc(http.MethodGet, "/v1/blogs", app.listBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/blogs", app.requireAuthUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id", app.getBlogHandler)
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id/edit", app.requireAuthUser(app.editBlogHandler))
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id", app.requireAuthUser(app.updateBlogHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id", app.requireAuthUser(app.deleteBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id/comments", app.listCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/blogs/:id/comments", app.requireAuthUser(app.createCommentHandler))

	// tag aggregator
	router.HandlerFunc(http.MethodGet, "/v1/tags", app.popularTagsHandler)

	return app.recoverPanic(app.requestID(app.logRequest(app.instrument(app.enableCORS(app.rateLimit(app.authenticate(router)))))))
}
