package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type nodeDrainSkill struct{}

func (s *nodeDrainSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "node_drain",
		Description: "Cordon a node so the scheduler stops placing new pods on it",
		Target:      domain.Cluster,
		Reversible:  true,
	}
}

func (s *nodeDrainSkill) ValidateParams(params map[string]any) error { return nil }

type nodeDrainUndoState struct {
	NodeName string `yaml:"node_name"`
}

// controlPlaneLabels are skipped when picking a random node to drain, so the
// skill never cordons a control-plane node by accident.
var controlPlaneLabels = []string{
	"node-role.kubernetes.io/control-plane",
	"node-role.kubernetes.io/master",
}

func (s *nodeDrainSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	nodeName := domain.ParamString(skillCtx.Params, "node_name", "")
	if nodeName == "" {
		nodeName, err = pickSchedulableWorkerNode(ctx, cs)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("node_drain: pick node: %w", err)
		}
	}

	if err := patchUnschedulable(ctx, cs, nodeName, true); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("node_drain: cordon %s: %w", nodeName, err)
	}

	return newHandle("node_drain", nodeDrainUndoState{NodeName: nodeName})
}

func (s *nodeDrainSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	cs, err := clientsetFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo nodeDrainUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("node_drain rollback: decode undo state: %w", err)
	}
	if err := patchUnschedulable(context.Background(), cs, undo.NodeName, false); err != nil {
		return fmt.Errorf("node_drain rollback: uncordon %s: %w", undo.NodeName, err)
	}
	return nil
}

func pickSchedulableWorkerNode(ctx context.Context, cs kubernetes.Interface) (string, error) {
	nodes, err := cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, n := range nodes.Items {
		if n.Spec.Unschedulable {
			continue
		}
		if isControlPlaneNode(n.Labels) {
			continue
		}
		candidates = append(candidates, n.Name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no schedulable non-control-plane node found")
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func isControlPlaneNode(labels map[string]string) bool {
	for _, l := range controlPlaneLabels {
		if _, ok := labels[l]; ok {
			return true
		}
	}
	return false
}

func patchUnschedulable(ctx context.Context, cs kubernetes.Interface, nodeName string, unschedulable bool) error {
	patch := map[string]any{"spec": map[string]any{"unschedulable": unschedulable}}
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = cs.CoreV1().Nodes().Patch(ctx, nodeName, types.MergePatchType, data, metav1.PatchOptions{})
	return err
}
