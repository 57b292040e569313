package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/newthinker/theta/internal/core"
	"gopkg.in/yaml.v3"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body, or YAML when the content type says so.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	var err error
	if isYAML(r.Header.Get("Content-Type")) {
		err = yaml.NewDecoder(body).Decode(v)
	} else {
		err = json.NewDecoder(body).Decode(v)
	}

	switch {
	case errors.Is(err, io.EOF):
		return core.WrapError(core.ErrInvalidInput, errors.New("request body is empty"))
	case err != nil:
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("decoding request body: %w", err))
	}
	return nil
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return true
	}
	return false
}
