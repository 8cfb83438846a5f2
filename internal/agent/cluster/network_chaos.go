package cluster

import (
	"context"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type networkChaosSkill struct{}

func (s *networkChaosSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "network_chaos",
		Description: "Create a deny-all-ingress/egress NetworkPolicy targeting a pod selector",
		Target:      domain.Cluster,
		Reversible:  true,
	}
}

func (s *networkChaosSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "namespace", "") == "" {
		return domain.NewConfigError("network_chaos: namespace is required")
	}
	return nil
}

type networkChaosUndoState struct {
	PolicyName string `yaml:"policy_name"`
	Namespace  string `yaml:"namespace"`
}

func (s *networkChaosSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	namespace := domain.ParamString(skillCtx.Params, "namespace", "default")
	podSelector := domain.ParamString(skillCtx.Params, "pod_selector", "")
	policyName := generatedName("chaos-deny")

	selector := metav1.LabelSelector{}
	if podSelector != "" {
		parsed, err := metav1.ParseToLabelSelector(podSelector)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("network_chaos: parse pod_selector %q: %w", podSelector, err)
		}
		selector = *parsed
	}

	policy := &networkingv1.NetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{
			Name:      policyName,
			Namespace: namespace,
			Labels:    map[string]string{"managed-by": "chaos-orchestrator"},
		},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: selector,
			PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress, networkingv1.PolicyTypeEgress},
		},
	}

	if _, err := cs.NetworkingV1().NetworkPolicies(namespace).Create(ctx, policy, metav1.CreateOptions{}); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("network_chaos: create network policy: %w", err)
	}

	return newHandle("network_chaos", networkChaosUndoState{PolicyName: policyName, Namespace: namespace})
}

func (s *networkChaosSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo networkChaosUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("network_chaos rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	if err := cs.NetworkingV1().NetworkPolicies(undo.Namespace).Delete(ctx, undo.PolicyName, metav1.DeleteOptions{}); err != nil {
		return fmt.Errorf("network_chaos rollback: delete policy %s: %w", undo.PolicyName, err)
	}
	return nil
}
