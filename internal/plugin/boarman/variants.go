package boarman

import "strings"

// Variant configures the analysis prompt and whether a project summary is
// fetched alongside the profile.
type Variant struct {
	Name        string
	Template    string
	UseSummary  bool
	ScoreFields []string
}

const grantFitTemplate = `Assess the given Twitter profile and reply concisely if the user is a good fit for our grant platform. Just make up something short.
Return your response in JSON format with a 'text' field containing your message.

Profile:
{{profile}}

Example response format:
{
    "text": "Your assessment message here"
}`

const projectFitTemplate = `Assess the given Twitter profile against the project summary below and reply concisely if the user is a good fit to build this project. Just make up something short.
Return your response in JSON format with a 'text' field containing your message.

Profile:
{{profile}}

Project summary:
{{projectSummary}}

Example response format:
{
    "text": "Your assessment message here"
}`

const vcScoreTemplate = `You are screening founders for a venture fund. Assess the given Twitter profile and reply concisely with your impression of the person.
Score the person from 1 to 10 on experience, industry relevance and execution capability.
Return your response in JSON format with a 'text' field containing your message and one numeric field per score.

Profile:
{{profile}}

Example response format:
{
    "text": "Your assessment message here",
    "experience": 7,
    "industry_relevance": 5,
    "execution_capability": 8
}`

var (
	GrantFit = Variant{
		Name:     "grant-fit",
		Template: grantFitTemplate,
	}
	ProjectFit = Variant{
		Name:       "project-fit",
		Template:   projectFitTemplate,
		UseSummary: true,
	}
	VCScore = Variant{
		Name:        "vc-score",
		Template:    vcScoreTemplate,
		ScoreFields: []string{"experience", "industry_relevance", "execution_capability"},
	}
)

// Variants lists the built-in variants, default first.
func Variants() []Variant {
	return []Variant{GrantFit, ProjectFit, VCScore}
}

// VariantByName looks up a built-in variant. An empty name selects GrantFit.
func VariantByName(name string) (Variant, bool) {
	if name == "" {
		return GrantFit, true
	}
	for _, v := range Variants() {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Variant{}, false
}
