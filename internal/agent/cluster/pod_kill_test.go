package cluster

import (
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningPod(name, namespace string, owner *metav1.OwnerReference) *corev1.Pod {
	p := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
	if owner != nil {
		p.OwnerReferences = []metav1.OwnerReference{*owner}
	}
	return p
}

func TestPodKillSkill_ValidateParams(t *testing.T) {
	s := &podKillSkill{}
	assert.Error(t, s.ValidateParams(map[string]any{}))
	assert.NoError(t, s.ValidateParams(map[string]any{"namespace": "default"}))
}

// TestPodKillSkill_OrphanPod covers spec scenario S5: an ownerless pod is
// recorded with has_owner=false and rollback cannot recreate it.
func TestPodKillSkill_OrphanPod(t *testing.T) {
	cs := fake.NewSimpleClientset(runningPod("orphan-1", "default", nil))
	s := &podKillSkill{}
	skillCtx := &domain.SkillContext{Shared: cs, Params: map[string]any{"namespace": "default", "count": 1}}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo []killedPod
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	require.Len(t, undo, 1)
	assert.Equal(t, "orphan-1", undo[0].Name)
	assert.False(t, undo[0].HasOwner)

	err = s.Rollback(skillCtx, handle)
	assert.Error(t, err, "ownerless pod requires manual recovery")
	assert.Contains(t, err.Error(), "manual recovery")
}

func TestPodKillSkill_OwnedPod_RollbackVerifiesReplacement(t *testing.T) {
	owner := &metav1.OwnerReference{Kind: "ReplicaSet", Name: "web-rs"}
	cs := fake.NewSimpleClientset(runningPod("web-1", "default", owner))
	s := &podKillSkill{}
	skillCtx := &domain.SkillContext{Shared: cs, Params: map[string]any{"namespace": "default", "count": 1}}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo []killedPod
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	require.Len(t, undo, 1)
	assert.True(t, undo[0].HasOwner)
	assert.Equal(t, "ReplicaSet", undo[0].OwnerKind)

	// Controller "recreates" the pod before rollback runs.
	_, err = cs.CoreV1().Pods("default").Create(t.Context(), runningPod("web-2", "default", owner), metav1.CreateOptions{})
	require.NoError(t, err)

	assert.NoError(t, s.Rollback(skillCtx, handle))
}

func TestHasRunningPodOwnedBy(t *testing.T) {
	owner := metav1.OwnerReference{Kind: "Deployment", Name: "api"}
	pods := []corev1.Pod{
		{Status: corev1.PodStatus{Phase: corev1.PodRunning}, ObjectMeta: metav1.ObjectMeta{OwnerReferences: []metav1.OwnerReference{owner}}},
	}
	assert.True(t, hasRunningPodOwnedBy(pods, "Deployment", "api"))
	assert.False(t, hasRunningPodOwnedBy(pods, "Deployment", "other"))
}
