package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

type Kind string

const (
	KindRequestCreated   Kind = "request-created"
	KindRequestAccepted  Kind = "request-accepted"
	KindRequestCompleted Kind = "request-completed"
	KindAccountWelcomed  Kind = "account-welcomed"
)

type RequestCreated struct {
	MakerName    string
	CustomerName string
	ModelTitle   string
	ModelURL     string
	Quantity     int
	Material     string
	Color        string
	Urgency      string
	Notes        string
}

type RequestAccepted struct {
	CustomerName string
	MakerName    string
	ModelTitle   string
	// QuotedPrice is pre-formatted; empty hides the quote block.
	QuotedPrice string
}

type RequestCompleted struct {
	CustomerName string
	MakerName    string
	ModelTitle   string
}

type AccountWelcomed struct {
	Name    string
	IsMaker bool
}

type frame struct {
	Gradient template.CSS
	Banner   string
}

type kindTemplate struct {
	subject string
	frame   frame
}

var kinds = map[Kind]kindTemplate{
	KindRequestCreated: {
		subject: "New Print Request - ThePrintFarm",
		frame:   frame{Gradient: "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", Banner: "New Print Request"},
	},
	KindRequestAccepted: {
		subject: "Print Request Accepted - ThePrintFarm",
		frame:   frame{Gradient: "linear-gradient(135deg, #28a745 0%, #20c997 100%)", Banner: "Request Accepted!"},
	},
	KindRequestCompleted: {
		subject: "Your Print is Complete! - ThePrintFarm",
		frame:   frame{Gradient: "linear-gradient(135deg, #ffc107 0%, #fd7e14 100%)", Banner: "Print Complete!"},
	},
	KindAccountWelcomed: {
		subject: "Welcome to ThePrintFarm!",
		frame:   frame{Gradient: "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", Banner: "Welcome to the Community!"},
	},
}

//go:embed templates/*.html
var templateFS embed.FS

var bodies = template.Must(template.New("notify").ParseFS(templateFS, "templates/*.html"))

type Renderer struct {
	dashboardURL string
}

// NewRenderer links every email to frontendURL + "/dashboard".
func NewRenderer(frontendURL string) *Renderer {
	return &Renderer{dashboardURL: frontendURL + "/dashboard"}
}

func (r *Renderer) Render(kind Kind, data any) (subject, html string, err error) {
	kt, ok := kinds[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	if err := checkData(kind, data); err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	err = bodies.ExecuteTemplate(&buf, string(kind), struct {
		Frame        frame
		Data         any
		DashboardURL string
	}{kt.frame, data, r.dashboardURL})
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}
	return kt.subject, buf.String(), nil
}

func checkData(kind Kind, data any) error {
	var ok bool
	switch kind {
	case KindRequestCreated:
		_, ok = data.(RequestCreated)
	case KindRequestAccepted:
		_, ok = data.(RequestAccepted)
	case KindRequestCompleted:
		_, ok = data.(RequestCompleted)
	case KindAccountWelcomed:
		_, ok = data.(AccountWelcomed)
	}
	if !ok {
		return fmt.Errorf("notification %s: unexpected data %T", kind, data)
	}
	return nil
}
