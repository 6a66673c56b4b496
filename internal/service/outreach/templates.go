// internal/service/outreach/templates.go
package outreach

import (
	"strings"
	"text/template"
)

type messageTemplate struct {
	subject     *template.Template
	body        *template.Template
	suggestions []string
}

var partnership = messageTemplate{
	subject: template.Must(template.New("partnership_subject").Parse(`Partnership Opportunity - {{.InfluencerName}}`)),
	body: template.Must(template.New("partnership_body").Parse(`Hi {{.InfluencerName}},

I hope this message finds you well. I've been following your excellent content on {{.Platform}} and I'm particularly impressed by your insights on {{.Industry}}.

{{.Prompt}}
{{if .Context}}
{{.Context}}
{{end}}
I believe there's a great opportunity for us to collaborate and create something valuable for both our audiences. Your expertise in {{.Industry}} would be a perfect complement to what we're building.

Would you be interested in a brief call to discuss this further? I'd love to learn more about your current projects and see how we might work together.

Best regards,
[Your Name]`)),
	suggestions: []string{
		"Mention specific content they've created that impressed you",
		"Include a clear call-to-action",
		"Keep it concise but personal",
	},
}

var collaboration = messageTemplate{
	subject: template.Must(template.New("collaboration_subject").Parse(`Collaboration Inquiry - {{.InfluencerName}}`)),
	body: template.Must(template.New("collaboration_body").Parse(`Hi {{.InfluencerName}},

I hope you're doing well. I've been following your work in {{.Industry}} and I'm impressed by your expertise and unique perspective.

{{.Prompt}}
{{if .Context}}
{{.Context}}
{{end}}
I'd love to explore how we might work together on content creation. This could include guest posts, joint webinars, social media collaborations, or other creative partnerships that would benefit both our audiences.

Would you be open to a quick conversation to discuss the possibilities?

Looking forward to hearing from you.

Best regards,
[Your Name]`)),
	suggestions: []string{
		"Be specific about the type of collaboration",
		"Mention mutual benefits",
		"Offer flexible options",
	},
}

// pickTemplate chooses by keywords in the prompt; partnership is the default.
func pickTemplate(prompt string) messageTemplate {
	p := strings.ToLower(prompt)
	if strings.Contains(p, "collaboration") || strings.Contains(p, "content") {
		return collaboration
	}
	return partnership
}
