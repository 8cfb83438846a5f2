package cluster

import (
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceStressSkill_ValidateParams(t *testing.T) {
	s := &resourceStressSkill{}
	assert.Error(t, s.ValidateParams(map[string]any{}))
	assert.NoError(t, s.ValidateParams(map[string]any{"namespace": "default"}))
}

func TestResourceStressSkill_ExecuteThenRollback(t *testing.T) {
	cs := fake.NewSimpleClientset()
	s := &resourceStressSkill{}
	skillCtx := &domain.SkillContext{
		Shared: cs,
		Params: map[string]any{"namespace": "default", "cpu_workers": 2, "memory": "512M"},
	}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo resourceStressUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	assert.Equal(t, "default", undo.Namespace)
	assert.NotEmpty(t, undo.PodName)

	pod, err := cs.CoreV1().Pods("default").Get(t.Context(), undo.PodName, metav1.GetOptions{})
	require.NoError(t, err)
	require.Len(t, pod.Spec.Containers, 1)
	assert.Contains(t, pod.Spec.Containers[0].Args, "2")
	assert.Contains(t, pod.Spec.Containers[0].Args, "512M")

	require.NoError(t, s.Rollback(skillCtx, handle))
	_, err = cs.CoreV1().Pods("default").Get(t.Context(), undo.PodName, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}
