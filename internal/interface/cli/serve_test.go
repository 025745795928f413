package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhm24/taskflow/internal/application/usecase/dispatch"
	"github.com/vhm24/taskflow/internal/domain/model"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    dispatch.Action
		actor   string
		wantErr bool
	}{
		{
			name:  "start",
			line:  "op-1 operator start 2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01",
			actor: "op-1",
			want: dispatch.Action{
				Kind: dispatch.ActionStart, Role: model.RoleOperator,
				TaskID: "2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01",
			},
		},
		{
			name:  "submit with fields",
			line:  "op-1 OPERATOR submit 2 weight=450",
			actor: "op-1",
			want: dispatch.Action{
				Kind: dispatch.ActionSubmit, Role: model.RoleOperator,
				StepOrder: 2, Fields: map[string]string{"weight": "450"},
			},
		},
		{
			name:  "cancel with reason only",
			line:  "op-1 OPERATOR cancel machine offline",
			actor: "op-1",
			want: dispatch.Action{
				Kind: dispatch.ActionCancel, Role: model.RoleOperator,
				Reason: "machine offline",
			},
		},
		{
			name:  "cancel with task id and reason",
			line:  "mgr-1 MANAGER cancel 2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01 reprioritized",
			actor: "mgr-1",
			want: dispatch.Action{
				Kind: dispatch.ActionCancel, Role: model.RoleManager,
				TaskID: "2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01", Reason: "reprioritized",
			},
		},
		{
			name:  "status",
			line:  "op-1 OPERATOR status",
			actor: "op-1",
			want:  dispatch.Action{Kind: dispatch.ActionStatus, Role: model.RoleOperator},
		},
		{
			name:  "resubmit",
			line:  "mgr-1 MANAGER resubmit 2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01 2 weight=455",
			actor: "mgr-1",
			want: dispatch.Action{
				Kind: dispatch.ActionResubmit, Role: model.RoleManager,
				TaskID:    "2f0c9e9a-9f3e-4a63-8a51-6d1f6a2e9b01",
				StepOrder: 2, Fields: map[string]string{"weight": "455"},
			},
		},
		{name: "too short", line: "op-1 start", wantErr: true},
		{name: "bad role", line: "op-1 PILOT status", wantErr: true},
		{name: "bad action", line: "op-1 OPERATOR reboot", wantErr: true},
		{name: "start without task", line: "op-1 OPERATOR start", wantErr: true},
		{name: "submit bad step", line: "op-1 OPERATOR submit two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actorID, action, err := parseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.actor, actorID.String())
			assert.Equal(t, tt.want.Kind, action.Kind)
			assert.Equal(t, tt.want.Role, action.Role)
			assert.Equal(t, tt.want.TaskID, action.TaskID)
			assert.Equal(t, tt.want.StepOrder, action.StepOrder)
			assert.Equal(t, tt.want.Reason, action.Reason)
			if tt.want.Fields != nil {
				assert.Equal(t, tt.want.Fields, action.Fields)
			}
		})
	}
}

func TestRenderPromptIncludesChoices(t *testing.T) {
	p := dispatch.Prompt{
		Text:    "Confirm the collection",
		Choices: []dispatch.Choice{{Label: "CONFIRM"}, {Label: "DISPUTE"}},
	}
	out := renderPrompt(p)
	assert.Contains(t, out, "Confirm the collection")
	assert.Contains(t, out, "[CONFIRM]")
	assert.Contains(t, out, "[DISPUTE]")
}
