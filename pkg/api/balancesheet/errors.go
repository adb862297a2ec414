package balancesheet

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

var errNoDatabase = errors.New("database not configured")

// ErrResponse is the JSON body of every error answer.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	Status         string `json:"status"`
	Error          string `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errResponse(code int, err error) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: code,
		Status:         http.StatusText(code),
		Error:          err.Error(),
	}
}
