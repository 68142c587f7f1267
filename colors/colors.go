package colors

import (
	"fmt"
	"net/http"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// Status colors an HTTP status code by class: 2xx green, 3xx cyan, 4xx yellow, 5xx red.
func Status(code int) string {
	text := fmt.Sprint(code)

	switch {
	case code >= http.StatusInternalServerError:
		return Red(text)
	case code >= http.StatusBadRequest:
		return Yellow(text)
	case code >= http.StatusMultipleChoices:
		return Cyan(text)
	default:
		return Green(text)
	}
}
