package handlers

import (
	"bytes"
	"encoding/xml"
)

// Minimal TwiML builder for the voice webhook. Only the verbs the
// conversation loop needs are modeled; no provider SDK involved.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName     xml.Name `xml:"Gather"`
	Input       string   `xml:"input,attr"`
	Action      string   `xml:"action,attr"`
	Method      string   `xml:"method,attr"`
	SpeechModel string   `xml:"speechModel,attr,omitempty"`
	Say         twimlSay `xml:"Say"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderGather speaks the prompt and listens for the caller's reply,
// posting the transcript back to action.
func RenderGather(prompt, action string) string {
	return renderTwiML(twimlResponse{
		Verbs: []any{
			twimlGather{
				Input:       "speech",
				Action:      action,
				Method:      "POST",
				SpeechModel: "phone_call",
				Say:         twimlSay{Text: prompt},
			},
		},
	})
}

// RenderHangup speaks a final prompt and ends the call.
func RenderHangup(prompt string) string {
	return renderTwiML(twimlResponse{
		Verbs: []any{
			twimlSay{Text: prompt},
			twimlHangup{},
		},
	})
}

func renderTwiML(r twimlResponse) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	// Encoding a fixed struct shape cannot fail; ignore the error to keep
	// the webhook path infallible.
	_ = enc.Encode(r)
	_ = enc.Flush()
	return buf.String()
}
