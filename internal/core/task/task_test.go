package task

import (
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/taskerr"
)

func TestParse(t *testing.T) {
	body := []byte(`{"repo_url":"https://github.com/org/repo","issue_id":7,"mode":"plan","user":"alice"}`)

	got, err := Parse(body, "3f0c9a2e-1111-2222-3333-444455556666")
	require.NoError(t, err)

	assert.Equal(t, Task{
		RepoURL:    "https://github.com/org/repo",
		Issue:      7,
		Mode:       ModePlan,
		User:       "alice",
		DeliveryID: "3f0c9a2e-1111-2222-3333-444455556666",
	}, got)
}

func TestParse_QuickFixAlias(t *testing.T) {
	body := []byte(`{"repo_url":"https://github.com/org/repo","issue_id":3,"mode":"quick-fix","user":"bob"}`)

	got, err := Parse(body, "d1")
	require.NoError(t, err)
	assert.Equal(t, ModeQuickFix, got.Mode)
}

func TestParse_GeneratesDeliveryID(t *testing.T) {
	body := []byte(`{"repo_url":"https://github.com/org/repo","issue_id":3,"mode":"plan","user":"bob"}`)

	a, err := Parse(body, "")
	require.NoError(t, err)
	b, err := Parse(body, "")
	require.NoError(t, err)

	assert.NotEmpty(t, a.DeliveryID)
	assert.NotEqual(t, a.DeliveryID, b.DeliveryID)
	assert.NotEqual(t, a.WorkspaceID(), b.WorkspaceID())
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name:       "unknown mode",
			body:       `{"repo_url":"https://github.com/org/repo","issue_id":7,"mode":"yolo","user":"alice"}`,
			wantFields: []string{"mode"},
		},
		{
			name:       "non-positive issue",
			body:       `{"repo_url":"https://github.com/org/repo","issue_id":0,"mode":"plan","user":"alice"}`,
			wantFields: []string{"issue_id"},
		},
		{
			name:       "missing user",
			body:       `{"repo_url":"https://github.com/org/repo","issue_id":7,"mode":"plan","user":"  "}`,
			wantFields: []string{"user"},
		},
		{
			name:       "not a url",
			body:       `{"repo_url":"org/repo","issue_id":7,"mode":"plan","user":"alice"}`,
			wantFields: []string{"repo_url"},
		},
		{
			name:       "url without repository path",
			body:       `{"repo_url":"https://github.com/","issue_id":7,"mode":"plan","user":"alice"}`,
			wantFields: []string{"repo_url"},
		},
		{
			name:       "url with credentials",
			body:       `{"repo_url":"https://x:y@github.com/org/repo","issue_id":7,"mode":"plan","user":"alice"}`,
			wantFields: []string{"repo_url"},
		},
		{
			name:       "every field wrong",
			body:       `{"repo_url":"","issue_id":-1,"mode":"","user":""}`,
			wantFields: []string{"repo_url", "issue_id", "mode", "user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body), "d1")
			require.Error(t, err)
			assert.True(t, taskerr.Is(err, taskerr.KindValidation))

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)

			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"repo_url":`), "d1")
	require.Error(t, err)
	assert.True(t, taskerr.Is(err, taskerr.KindValidation))
	assert.False(t, taskerr.Retryable(err))
}

func TestTask_Names(t *testing.T) {
	tk := Task{
		RepoURL:    "https://github.com/Org/My.Repo",
		Issue:      7,
		Mode:       ModePlan,
		User:       "alice",
		DeliveryID: "3f0c9a2e-1111-2222-3333-444455556666",
	}

	assert.Equal(t, "org-my.repo-issue-7-3f0c9a2e", tk.WorkspaceID())
	assert.Equal(t, tk.WorkspaceID(), tk.WorkspaceID())
	assert.Equal(t, "agent/plan-issue-7", tk.BranchName(""))
	assert.Equal(t, "bot/plan-issue-7", tk.BranchName("bot/"))
	assert.Equal(t, "Org", tk.Owner())
	assert.Equal(t, "My.Repo", tk.Repo())

	tk.Mode = ModeQuickFix
	assert.Equal(t, "agent/quickfix-issue-7", tk.BranchName("agent"))
}

func TestTask_WorkspaceIDDistinguishesRepositories(t *testing.T) {
	a := Task{RepoURL: "https://github.com/org/one", Issue: 7, DeliveryID: "same"}
	b := Task{RepoURL: "https://github.com/org/two", Issue: 7, DeliveryID: "same"}
	assert.NotEqual(t, a.WorkspaceID(), b.WorkspaceID())
}

func TestTask_Marshal(t *testing.T) {
	tk := Task{RepoURL: "https://github.com/org/repo", Issue: 7, Mode: ModePlan, User: "alice"}

	data, err := tk.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"repo_url":"https://github.com/org/repo","issue_id":7,"mode":"plan","user":"alice"}`, string(data))

	back, err := Parse(data, "d1")
	require.NoError(t, err)
	assert.Equal(t, tk.Issue, back.Issue)
}
