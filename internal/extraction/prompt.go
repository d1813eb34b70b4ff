package extraction

import (
	"fmt"
	"strings"

	"github.com/scopeline/scopeline/internal/taxonomy"
)

const promptTemplate = `You are an estimator reviewing a contractor's walkthrough of a construction project. Extract the full scope of work from the transcript below.

Assign every scope item a cost code from this list and no other:
%s

Respond with a JSON object of this exact shape:
{
  "project_summary": {
    "overview": "two to three sentence summary of the project",
    "key_requirements": ["..."],
    "concerns": ["..."],
    "decision_points": ["unresolved choices the client still has to make"],
    "important_notes": ["..."]
  },
  "scope_items": [
    {
      "cost_code": "06",
      "category": "Carpentry",
      "sub_code": "",
      "sub_category": "",
      "description": "what the work is",
      "location": "where in the building",
      "materials": ["..."],
      "quantity": "",
      "notes": "",
      "risk_level": "low|medium|high"
    }
  ],
  "scope_completeness_score": 0
}

scope_completeness_score is 0-100: how completely the walkthrough covers the work the project implies. Capture every distinct piece of work, including demolition and cleanup. Do not invent work the transcript does not support.

Transcript:
%s`

const repairInstruction = `Your previous reply was not valid JSON. Respond again with ONLY the JSON object, no prose and no markdown fences.`

func buildPrompt(tax *taxonomy.Taxonomy, transcript string) string {
	return fmt.Sprintf(promptTemplate, tax.PromptList(), strings.TrimSpace(transcript))
}
