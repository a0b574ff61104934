// internal/service/template.go
package service

import (
    "regexp"

    "github.com/driftmailhq/driftmail-backend/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// RenderTemplate substitutes {{placeholder}} tokens in pattern using the
// recipient's data. Resolution order per token: the literal fields first
// (name -> display name, email -> address), then the attribute map. A token
// that resolves to nothing becomes the empty string, never literal {{name}}.
func RenderTemplate(pattern string, rcpt model.Recipient) string {
    return placeholderPattern.ReplaceAllStringFunc(pattern, func(token string) string {
        name := token[2 : len(token)-2]

        switch name {
        case "name":
            if rcpt.DisplayName != "" {
                return rcpt.DisplayName
            }
        case "email":
            if rcpt.Address != "" {
                return rcpt.Address
            }
        }

        return rcpt.Attributes[name]
    })
}
