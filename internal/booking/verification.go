// AngelaMos | 2026
// verification.go

package booking

import (
	"encoding/json"
	"fmt"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/upload"
)

const (
	inlineKey = "attachmentsData"
	storedKey = "attachments"
)

// inlineFields maps the request field carrying a data URL to the attachment
// kind it is stored as.
var inlineFields = []struct {
	field string
	kind  string
}{
	{"idFront", AttachmentIDFront},
	{"idBack", AttachmentIDBack},
	{"license", AttachmentLicense},
}

type inlineAttachment struct {
	field   string
	kind    string
	dataURL string
}

// verification is the client supplied verification object with any inline
// attachment data split off.
type verification struct {
	fields map[string]json.RawMessage
	inline []inlineAttachment
}

func parseVerification(raw json.RawMessage) (*verification, error) {
	v := &verification{}
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}

	if err := json.Unmarshal(raw, &v.fields); err != nil {
		return nil, fmt.Errorf("verification must be an object: %w", core.ErrInvalidInput)
	}

	data, ok := v.fields[inlineKey]
	if !ok {
		return v, nil
	}
	delete(v.fields, inlineKey)

	var urls map[string]string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("verification attachments: %w", core.ErrInvalidInput)
	}

	for _, f := range inlineFields {
		if u := urls[f.field]; upload.IsDataURL(u) {
			v.inline = append(v.inline, inlineAttachment{field: f.field, kind: f.kind, dataURL: u})
		}
	}

	return v, nil
}

// encode renders the stored form. saved maps request fields to the paths
// their files were written to.
func (v *verification) encode(saved map[string]string) (*string, error) {
	if v.fields == nil && len(saved) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(v.fields)+1)
	for k, val := range v.fields {
		out[k] = val
	}
	if len(saved) > 0 {
		out[storedKey] = saved
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode verification: %w", err)
	}

	s := string(b)
	return &s, nil
}

// verificationJSON returns stored verification text as raw JSON. Text that
// is not valid JSON is returned as a JSON string.
func verificationJSON(stored *string) json.RawMessage {
	if stored == nil || *stored == "" {
		return nil
	}
	if json.Valid([]byte(*stored)) {
		return json.RawMessage(*stored)
	}
	b, err := json.Marshal(*stored)
	if err != nil {
		return nil
	}
	return b
}
