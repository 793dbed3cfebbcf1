package generation

import (
	"bytes"
	"fmt"
	"text/template"
)

// LyricsSystemPrompt frames the model for lyrics and titles.
const LyricsSystemPrompt = "You are a talented songwriter who creates beautiful, personalized lyrics."

var lyricsTemplate = template.Must(template.New("lyrics").Parse(
	`Create personalized song lyrics based on:
Description: {{.Description}}
Music style: {{.Style}}
{{- if .Tone}}
Emotional tone: {{.Tone}}{{end}}
{{- if .Recipient}}
The song is for: {{.Recipient}}{{end}}
{{- if .Occasion}}
Occasion: {{.Occasion}}{{end}}
{{- if .AdditionalDetails}}
Additional details: {{.AdditionalDetails}}{{end}}

Make it heartfelt and personal. Write 2-3 verses and a chorus.
Return only the lyrics without any additional text or formatting.`))

var titleTemplate = template.Must(template.New("title").Parse(
	`Suggest a short, catchy title (at most six words) for a song with these lyrics:

{{.}}

Return only the title without quotes or any additional text.`))

// LyricsPrompt renders the user prompt for a lyrics request.
func LyricsPrompt(req LyricsRequest) (string, error) {
	var buf bytes.Buffer
	if err := lyricsTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to execute lyrics prompt template: %w", err)
	}
	return buf.String(), nil
}

// TitlePrompt renders the user prompt for a title request.
func TitlePrompt(lyrics string) (string, error) {
	var buf bytes.Buffer
	if err := titleTemplate.Execute(&buf, lyrics); err != nil {
		return "", fmt.Errorf("failed to execute title prompt template: %w", err)
	}
	return buf.String(), nil
}
