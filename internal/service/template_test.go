package service_test

import (
    "testing"

    "github.com/driftmailhq/driftmail-backend/internal/model"
    "github.com/driftmailhq/driftmail-backend/internal/service"
)

func TestRenderTemplateSubstitutesRecipientFields(t *testing.T) {
    rcpt := model.Recipient{
        Address:     "ana@example.com",
        DisplayName: "Ana",
        Attributes:  map[string]string{"plan": "pro", "city": "Lisbon"},
    }

    got := service.RenderTemplate("Hi {{name}}, your {{plan}} plan is active at {{email}}.", rcpt)
    want := "Hi Ana, your pro plan is active at ana@example.com."
    if got != want {
        t.Errorf("expected %q, got %q", want, got)
    }
}

func TestRenderTemplateMissingValuesBecomeEmpty(t *testing.T) {
    rcpt := model.Recipient{
        Address:    "ana@example.com",
        Attributes: map[string]string{},
    }

    // no display name and no such attribute
    got := service.RenderTemplate("Hi {{name}}! Your code: {{discount_code}}", rcpt)
    want := "Hi ! Your code: "
    if got != want {
        t.Errorf("expected %q, got %q", want, got)
    }
}

func TestRenderTemplateAttributesDoNotShadowFields(t *testing.T) {
    rcpt := model.Recipient{
        Address:     "real@example.com",
        DisplayName: "Real Name",
        Attributes:  map[string]string{"name": "Attribute Name", "email": "fake@example.com"},
    }

    got := service.RenderTemplate("{{name}} <{{email}}>", rcpt)
    want := "Real Name <real@example.com>"
    if got != want {
        t.Errorf("expected %q, got %q", want, got)
    }
}

func TestRenderTemplateFallsBackToAttributeWhenFieldEmpty(t *testing.T) {
    rcpt := model.Recipient{
        Address:    "carla@example.com",
        Attributes: map[string]string{"name": "Carla from attributes"},
    }

    got := service.RenderTemplate("Hi {{name}}", rcpt)
    if got != "Hi Carla from attributes" {
        t.Errorf("expected attribute fallback, got %q", got)
    }
}

func TestRenderTemplateLeavesNonPlaceholderBracesAlone(t *testing.T) {
    rcpt := model.Recipient{DisplayName: "Ana"}

    cases := map[string]string{
        "literal {braces} stay":        "literal {braces} stay",
        "empty {{}} stays":             "empty {{}} stays",
        "{{name}}{{name}}":             "AnaAna",
        "spaced {{ name }} stays":      "spaced {{ name }} stays",
        "nested {{outer{{name}}}} mix": "nested {{outerAna}} mix",
    }

    for pattern, want := range cases {
        if got := service.RenderTemplate(pattern, rcpt); got != want {
            t.Errorf("pattern %q: expected %q, got %q", pattern, want, got)
        }
    }
}

func TestRenderTemplateNilAttributes(t *testing.T) {
    rcpt := model.Recipient{Address: "x@example.com"}

    if got := service.RenderTemplate("{{plan}}", rcpt); got != "" {
        t.Errorf("expected empty string for nil attribute map, got %q", got)
    }
}
