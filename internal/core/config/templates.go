package config

import (
	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/host"
)

// MessageData defines available fields for commit, pull request and comment
// templates.
type MessageData struct {
	Issue       host.IssueRecord
	Repo        host.Repository
	Branch      string
	Mode        string
	User        string
	Plan        string           // generated plan text, plan mode only
	PullRequest host.PullRequest // zero until the pull request exists
	Changes     []git.FileChange // files changed by the code agent, quickfix only
}

// CodeAgentTemplateData defines available fields for code_agent.args templates.
type CodeAgentTemplateData struct {
	Model     string
	Workspace string
	Issue     int
}

const defaultPlanPRBody = `## AI Agent Proposal

**Status:** Awaiting approval

### Implementation Plan

{{ trim .Plan }}

---

### Next Steps

Review the plan above. If it looks right, comment ` + "`/approve`" + ` on the issue to start the implementation.

**Related Issue:** #{{ .Issue.Number }}
**Requested by:** @{{ .User }}
`

const defaultPlanComment = `I've created an implementation plan for this issue.

**Draft PR:** #{{ .PullRequest.Number }}

Please review the plan and comment ` + "`/approve`" + ` to proceed with the implementation.
`

const defaultQuickFixPRBody = `## AI Agent QuickFix

Automated fix for #{{ .Issue.Number }}: {{ .Issue.Title }}
{{ if .Changes }}
### Files Changed

{{ range .Changes }}- ` + "`{{ .Path }}`" + ` ({{ .Status }}, +{{ .Additions }}/-{{ .Deletions }})
{{ end }}{{ end }}
Please review the changes carefully before merging.

Closes #{{ .Issue.Number }}
`

func defaultTemplates() Templates {
	return Templates{
		PlanCommit:      "AI Agent: plan for issue #{{ .Issue.Number }}",
		PlanPRTitle:     "[AI Agent] Fix issue #{{ .Issue.Number }}: {{ truncate 200 .Issue.Title }}",
		PlanPRBody:      defaultPlanPRBody,
		PlanComment:     defaultPlanComment,
		QuickFixCommit:  "AI Agent: fix issue #{{ .Issue.Number }}",
		QuickFixPRTitle: "[AI Agent QuickFix] Fix issue #{{ .Issue.Number }}: {{ truncate 200 .Issue.Title }}",
		QuickFixPRBody:  defaultQuickFixPRBody,
		QuickFixComment: "QuickFix applied. PR: #{{ .PullRequest.Number }}\n",
	}
}

func (t *Templates) fill(defaults Templates) {
	for _, pair := range []struct {
		dst *string
		src string
	}{
		{&t.PlanCommit, defaults.PlanCommit},
		{&t.PlanPRTitle, defaults.PlanPRTitle},
		{&t.PlanPRBody, defaults.PlanPRBody},
		{&t.PlanComment, defaults.PlanComment},
		{&t.QuickFixCommit, defaults.QuickFixCommit},
		{&t.QuickFixPRTitle, defaults.QuickFixPRTitle},
		{&t.QuickFixPRBody, defaults.QuickFixPRBody},
		{&t.QuickFixComment, defaults.QuickFixComment},
	} {
		if *pair.dst == "" {
			*pair.dst = pair.src
		}
	}
}

// named returns the templates keyed by their config field name.
func (t Templates) named() map[string]string {
	return map[string]string{
		"templates.plan_commit":       t.PlanCommit,
		"templates.plan_pr_title":     t.PlanPRTitle,
		"templates.plan_pr_body":      t.PlanPRBody,
		"templates.plan_comment":      t.PlanComment,
		"templates.quickfix_commit":   t.QuickFixCommit,
		"templates.quickfix_pr_title": t.QuickFixPRTitle,
		"templates.quickfix_pr_body":  t.QuickFixPRBody,
		"templates.quickfix_comment":  t.QuickFixComment,
	}
}
