package utils

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
)

func TestEmailTemplatesRender(t *testing.T) {
	data := struct {
		FirstName string
		Items     []string
		Link      string
		ExpiresAt string
		FirmName  string
		Year      int
	}{"Dana", []string{"W-2", "1099-NEC"}, "https://example.com/r/abc", "March 1, 2026", "Example Tax Co", 2026}

	for name, content := range emailTemplates {
		t.Run(name, func(t *testing.T) {
			tmpl, err := template.New("email").Parse(content)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			var body bytes.Buffer
			if err := tmpl.Execute(&body, data); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if !strings.Contains(body.String(), "Dana") {
				t.Fatalf("template %q does not use FirstName", name)
			}
		})
	}
}

func TestDripTemplatesCoverAllStages(t *testing.T) {
	for _, emailType := range []string{"intro", "refund_amounts", "urgency"} {
		if _, ok := emailTemplates["drip_"+emailType]; !ok {
			t.Errorf("missing template for drip email type %q", emailType)
		}
		if _, ok := dripSubjects[emailType]; !ok {
			t.Errorf("missing subject for drip email type %q", emailType)
		}
	}
}
