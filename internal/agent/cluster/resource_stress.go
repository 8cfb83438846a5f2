package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type resourceStressSkill struct{}

func (s *resourceStressSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "resource_stress",
		Description: "Deploy a stress-ng pod consuming CPU and memory for a fixed server-side timeout",
		Target:      domain.Cluster,
		Reversible:  true,
	}
}

func (s *resourceStressSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "namespace", "") == "" {
		return domain.NewConfigError("resource_stress: namespace is required")
	}
	return nil
}

type resourceStressUndoState struct {
	PodName   string `yaml:"pod_name"`
	Namespace string `yaml:"namespace"`
}

// stressServerTimeout bounds how long the stress-ng process runs inside the
// pod even if rollback never reaches it, matching the "fixed server-side
// timeout" behavior named in spec §4.6.
const stressServerTimeout = "3600s"

func (s *resourceStressSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	namespace := domain.ParamString(skillCtx.Params, "namespace", "default")
	cpuWorkers := domain.ParamInt(skillCtx.Params, "cpu_workers", 1)
	memory := domain.ParamString(skillCtx.Params, "memory", "256M")
	image := domain.ParamString(skillCtx.Params, "image", "polinux/stress-ng:latest")
	podName := generatedName("chaos-stress")

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: namespace,
			Labels:    map[string]string{"managed-by": "chaos-orchestrator"},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:  "stress",
					Image: image,
					Args: []string{
						"--cpu", fmt.Sprintf("%d", cpuWorkers),
						"--vm", "1", "--vm-bytes", memory,
						"--timeout", stressServerTimeout,
					},
				},
			},
		},
	}

	if _, err := cs.CoreV1().Pods(namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("resource_stress: create stress pod: %w", err)
	}

	return newHandle("resource_stress", resourceStressUndoState{PodName: podName, Namespace: namespace})
}

func (s *resourceStressSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo resourceStressUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("resource_stress rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	if err := cs.CoreV1().Pods(undo.Namespace).Delete(ctx, undo.PodName, metav1.DeleteOptions{}); err != nil {
		return fmt.Errorf("resource_stress rollback: delete pod %s: %w", undo.PodName, err)
	}
	return nil
}
