package generation

import (
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/pkg/tmpl"
)

const planPrompt = `You are an expert software engineer. Analyze the following issue and codebase, then create a detailed implementation plan.

{{ .Context }}

## Your Task

Create a detailed implementation plan for issue #{{ .Issue.Number }}: {{ .Issue.Title }}

Your plan should include:
1. **Summary**: Brief overview of what needs to be done
2. **Files to Modify**: List of files that need changes
3. **Implementation Steps**: Step-by-step approach
4. **Potential Risks**: Any concerns or edge cases
5. **Testing Strategy**: How to verify the changes work

Format your response as clear, structured markdown.
Be specific and actionable. Only propose changes to files you have seen in the context.

## Implementation Plan
`

const codePrompt = `You are an expert software engineer. Implement a complete solution for this issue.

## Your Task

Implement a solution for issue #{{ .Issue.Number }}: {{ .Issue.Title }}

{{ or_else "No description provided." .Issue.Body }}

**Guidelines:**
- Only modify files relevant to the issue
- Ensure code follows existing style and conventions
- Add appropriate comments where needed
- Handle edge cases
- Keep changes minimal and focused
- Make sure the code is syntactically correct
`

type promptData struct {
	Context string
	Issue   host.IssueRecord
}

// PlanPrompt renders the plan prompt around a context document.
func PlanPrompt(doc string, issue host.IssueRecord) (string, error) {
	return tmpl.Render(planPrompt, promptData{Context: doc, Issue: issue})
}

// CodePrompt renders the instruction handed to the code agent.
func CodePrompt(issue host.IssueRecord) (string, error) {
	return tmpl.Render(codePrompt, promptData{Issue: issue})
}
