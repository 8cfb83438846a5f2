package cluster

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type podKillSkill struct{}

func (s *podKillSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "pod_kill",
		Description: "Delete a random sample of running pods",
		Target:      domain.Cluster,
		Reversible:  true,
	}
}

func (s *podKillSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "namespace", "") == "" {
		return domain.NewConfigError("pod_kill: namespace is required")
	}
	return nil
}

type killedPod struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	HasOwner  bool   `yaml:"has_owner"`
	OwnerKind string `yaml:"owner_kind,omitempty"`
	OwnerName string `yaml:"owner_name,omitempty"`
}

func (s *podKillSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	namespace := domain.ParamString(skillCtx.Params, "namespace", "default")
	labelSelector := domain.ParamString(skillCtx.Params, "label_selector", "")
	count := domain.ParamInt(skillCtx.Params, "count", 1)

	pods, err := cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
		FieldSelector: "status.phase=Running",
	})
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("pod_kill: list running pods: %w", err)
	}

	candidates := pods.Items
	if count > len(candidates) {
		count = len(candidates)
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	victims := candidates[:count]

	var undo []killedPod
	for _, pod := range victims {
		hasOwner, ownerKind, ownerName := ownerOf(pod)
		if err := cs.CoreV1().Pods(namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil {
			log.Printf("pod_kill: failed to delete pod %s: %v", pod.Name, err)
			continue
		}
		undo = append(undo, killedPod{
			Name: pod.Name, Namespace: namespace,
			HasOwner: hasOwner, OwnerKind: ownerKind, OwnerName: ownerName,
		})
	}

	return newHandle("pod_kill", undo)
}

// Rollback verifies owned pods have a replacement scheduled by their
// controller; ownerless pods cannot be recreated by this tool and are
// logged as requiring manual recovery, per spec §4.6.
func (s *podKillSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []killedPod
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("pod_kill rollback: decode undo state: %w", err)
	}
	ctx := context.Background()

	var manualRecoveryNeeded []string
	for _, k := range undo {
		if !k.HasOwner {
			manualRecoveryNeeded = append(manualRecoveryNeeded, k.Name)
			log.Printf("pod_kill rollback: pod %s/%s had no owner, manual recovery required", k.Namespace, k.Name)
			continue
		}
		pods, err := cs.CoreV1().Pods(k.Namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("pod_kill rollback: verify replacement for %s/%s: %w", k.Namespace, k.Name, err)
		}
		if !hasRunningPodOwnedBy(pods.Items, k.OwnerKind, k.OwnerName) {
			log.Printf("pod_kill rollback: no running replacement yet for %s owned by %s/%s", k.Name, k.OwnerKind, k.OwnerName)
		}
	}
	if len(manualRecoveryNeeded) > 0 {
		return fmt.Errorf("pod_kill rollback: %d ownerless pods require manual recovery: %v", len(manualRecoveryNeeded), manualRecoveryNeeded)
	}
	return nil
}

func hasRunningPodOwnedBy(pods []corev1.Pod, ownerKind, ownerName string) bool {
	for _, p := range pods {
		if p.Status.Phase != corev1.PodRunning {
			continue
		}
		for _, o := range p.OwnerReferences {
			if o.Kind == ownerKind && o.Name == ownerName {
				return true
			}
		}
	}
	return false
}
