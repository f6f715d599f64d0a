package httpapi

import (
	"errors"
	"io"
	"net/http"
)

const maxEventBytes = 2 << 20

// readEventBody reads the request body up to limit bytes. The returned status
// is the one to answer with when err is not nil.
func readEventBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, int, error) {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	if len(raw) == 0 {
		return nil, http.StatusBadRequest, errors.New("empty body")
	}
	return raw, http.StatusOK, nil
}
