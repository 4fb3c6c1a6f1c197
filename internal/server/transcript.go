// ABOUTME: Admin transcript viewer rendering a user's conversation as HTML
// ABOUTME: Assistant answers are markdown and converted with goldmark

package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
)

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Transcript — {{.Username}}</title></head>
<body>
<h1>Transcript for {{.Username}}</h1>
{{range .Entries}}
<div class="exchange">
  <p class="question"><strong>Q:</strong> {{.Question}}</p>
  <div class="answer">{{.AnswerHTML}}</div>
  <p class="meta">{{.CreatedAt}}</p>
</div>
{{else}}
<p>No conversation recorded.</p>
{{end}}
</body>
</html>`))

type transcriptEntry struct {
	Question   string
	AnswerHTML template.HTML
	CreatedAt  string
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("user")
	if username == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	exchanges, err := s.store.History(r.Context(), user.ID, 100)
	if err != nil {
		s.logger.Error("loading transcript failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to load transcript")
		return
	}

	entries := make([]transcriptEntry, 0, len(exchanges))
	for _, ex := range exchanges {
		entries = append(entries, transcriptEntry{
			Question:   ex.Question,
			AnswerHTML: renderMarkdown(ex.Answer, s),
			CreatedAt:  ex.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	transcriptTemplate.Execute(w, struct {
		Username string
		Entries  []transcriptEntry
	}{Username: user.Username, Entries: entries})
}

// renderMarkdown converts an assistant answer to HTML, falling back to a
// plain paragraph if conversion fails.
func renderMarkdown(md string, s *Server) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(md) + "</p>")
	}
	return template.HTML(buf.String())
}
