package runner

import (
	"io"
	"strings"
	"text/template"
)

const annotationTemplate = `Release {{ .Tag }}
{{- with .Message }}

{{ . }}
{{- end }}
`

type annotationData struct {
	Tag     string
	Message string
}

var annotationTmpl = template.Must(template.New("annotation").Parse(annotationTemplate))

// annotation writes the tag message: a "Release {tag}" subject, then the
// rendered release message as the body.
func annotation(w io.Writer, tag, message string) error {
	return annotationTmpl.Execute(w, annotationData{Tag: tag, Message: strings.TrimSpace(message)})
}
