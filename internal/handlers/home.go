package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/google/uuid"
)

type message struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time
}

type homePageData struct {
	UserID   string
	Messages []message
}

// HandleHome renders the demo page that embeds the widget: the floating
// button, the panel seeded with the assistant greeting, and the script
// driving the send pipeline.
func (m *Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = uuid.New().String()
	}

	content, err := models.RenderHTML(m.greeting)
	if err != nil {
		m.logger.Error("Failed to render greeting", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := homePageData{
		UserID: userID,
		Messages: []message{
			{
				ID:        uuid.New().String(),
				Role:      string(models.RoleAssistant),
				Content:   content,
				Timestamp: time.Now(),
			},
		},
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
