package prompt

// DefaultSystemPrompt frames the evaluator. It is a Go text/template with
// no fields.
const DefaultSystemPrompt = `You are a professional interviewer analyzing a mock interview. Evaluate the candidate strictly against the scoring categories you are given. Do not be lenient: where the candidate made mistakes or left gaps, point them out.`

// DefaultUserPrompt carries the transcript. Fields: .Transcript, .Omitted,
// .Categories.
const DefaultUserPrompt = `You are analyzing a mock interview. Your task is to evaluate the candidate on the structured categories below. Be thorough and specific, and base every judgement on what the candidate actually said.
{{- if .Omitted}}

({{.Omitted}} earlier lines of the transcript were omitted.)
{{- end}}

Transcript:
{{.Transcript}}
Score the candidate from 0 to 100 in each of these areas, and give a short comment for each:
{{- range .Categories}}
- {{.}}
{{- end}}

Then list the candidate's strengths, the areas they should improve, and a final assessment.`
