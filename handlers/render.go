package handlers

import "github.com/gin-gonic/gin"

// messagePage is the view model for the shared message template used by
// denial, error and not-implemented pages.
type messagePage struct {
	PageTitle string
	Heading   string
	Message   string

	PrimaryActionLabel string
	PrimaryActionURL   string

	SecondaryActionLabel string
	SecondaryActionURL   string
}

func renderMessage(c *gin.Context, status int, p messagePage) {
	c.HTML(status, "message.html", gin.H{
		"PageTitle":            p.PageTitle,
		"Heading":              p.Heading,
		"Message":              p.Message,
		"PrimaryActionLabel":   p.PrimaryActionLabel,
		"PrimaryActionURL":     p.PrimaryActionURL,
		"SecondaryActionLabel": p.SecondaryActionLabel,
		"SecondaryActionURL":   p.SecondaryActionURL,
	})
}
