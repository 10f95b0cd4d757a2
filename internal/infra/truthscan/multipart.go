package truthscan

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

type formField struct {
	name  string
	value string
}

type filePart struct {
	field       string
	fileName    string
	contentType string
	body        io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeMultipart writes the file part, when present, then the fields, and
// closes w.
func writeMultipart(w *multipart.Writer, file *filePart, fields []formField) error {
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.fileName)))
		h.Set("Content-Type", file.contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, file.body); err != nil {
			return fmt.Errorf("copy file part: %w", err)
		}
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	return w.Close()
}
