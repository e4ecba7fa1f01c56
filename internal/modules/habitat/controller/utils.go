package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/utils"
)

const maxFormMemory = 1 << 20

var submissionFields = []string{
	service.FieldTemperature,
	service.FieldHumidity,
	service.FieldWaterLevel,
	service.FieldStability,
}

// speciesParam returns the requested species. "animal" is the name sensor
// dashboards have always used; "species" is accepted as an alias.
func speciesParam(r *http.Request) string {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("animal")); v != "" {
		return v
	}
	return strings.TrimSpace(q.Get("species"))
}

// parseSubmission reads the four reading fields from a JSON, multipart or
// urlencoded body of at most maxFormMemory bytes. Fields that are absent stay nil.
func parseSubmission(w http.ResponseWriter, r *http.Request) (service.Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormMemory)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return service.Submission{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		return service.SubmissionFromMap(body), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return service.Submission{}, fmt.Errorf("invalid multipart body: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return service.Submission{}, fmt.Errorf("invalid form body: %w", err)
		}
	}

	fields := make(map[string]any, len(submissionFields))
	for _, name := range submissionFields {
		if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
			fields[name] = vs[0]
		}
	}
	return service.SubmissionFromMap(fields), nil
}

// statusFor maps a service error to its HTTP status and envelope status.
func statusFor(err error) (int, string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, utils.StatusError
	case errors.Is(err, service.ErrNoData):
		return http.StatusNotFound, utils.StatusWarning
	default:
		return http.StatusInternalServerError, utils.StatusError
	}
}
