// Package cluster implements the chaos agent for a container-orchestrator
// target. The client is built from an in-cluster config with a kubeconfig
// fallback. Its four skills act on cluster-level objects (pods, nodes,
// NetworkPolicies, stress Pods) rather than exec'ing into workloads.
package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// Config is the cluster target_config shape from spec §6.
type Config struct {
	Kubeconfig    string `yaml:"kubeconfig,omitempty"`
	Namespace     string `yaml:"namespace,omitempty"`
	LabelSelector string `yaml:"label_selector,omitempty"`
}

// Agent adapts the Cluster target domain.
type Agent struct {
	cfg       Config
	clientset kubernetes.Interface
	status    domain.AgentStatus
	skills    map[string]domain.Skill
}

func New(cfg Config) *Agent {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return &Agent{cfg: cfg, status: domain.AgentUninitialized, skills: buildSkills()}
}

func (a *Agent) Domain() domain.TargetDomain { return domain.Cluster }
func (a *Agent) Name() string                { return "cluster(k8s)" }
func (a *Agent) Status() domain.AgentStatus  { return a.status }

// Initialize constructs an API client from the configured kubeconfig path
// or, when none is given, in-cluster config falling back to the default
// kubeconfig location, then verifies the handshake with a namespace get.
func (a *Agent) Initialize(ctx context.Context) error {
	var restCfg *rest.Config
	var err error

	if a.cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", a.cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
		if err != nil {
			restCfg, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		}
	}
	if err != nil {
		a.status = domain.AgentFailed
		return fmt.Errorf("build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		a.status = domain.AgentFailed
		return fmt.Errorf("build clientset: %w", err)
	}

	if _, err := clientset.CoreV1().Namespaces().Get(ctx, a.cfg.Namespace, metav1.GetOptions{}); err != nil {
		a.status = domain.AgentFailed
		return fmt.Errorf("verify cluster handshake: %w", err)
	}

	a.clientset = clientset
	a.status = domain.AgentReady
	return nil
}

// Discover lists pods in the configured namespace, filtered by the optional
// label selector, projecting each to (kind=Pod, name, namespace, labels).
func (a *Agent) Discover(ctx context.Context) ([]domain.DiscoveredResource, error) {
	pods, err := a.clientset.CoreV1().Pods(a.cfg.Namespace).List(ctx, metav1.ListOptions{LabelSelector: a.cfg.LabelSelector})
	if err != nil {
		return nil, domain.DiscoveryError("list pods in %s: %v", a.cfg.Namespace, err)
	}

	resources := make([]domain.DiscoveredResource, 0, len(pods.Items))
	for _, p := range pods.Items {
		resources = append(resources, domain.K8sResource{
			Kind:      "Pod",
			Namespace: p.Namespace,
			Name:      p.Name,
			Labels:    p.Labels,
		})
	}
	return resources, nil
}

func (a *Agent) Skills() []domain.Skill {
	out := make([]domain.Skill, 0, len(a.skills))
	for _, s := range a.skills {
		out = append(out, s)
	}
	return out
}

func (a *Agent) SkillByName(name string) (domain.Skill, bool) {
	s, ok := a.skills[name]
	return s, ok
}

// BuildContext hands the skill the shared kubernetes.Interface; skills
// type-assert ctx.Shared.(kubernetes.Interface).
func (a *Agent) BuildContext(params map[string]any) (*domain.SkillContext, error) {
	if a.clientset == nil {
		return nil, domain.ConnectionError(fmt.Errorf("agent not initialized"))
	}
	return &domain.SkillContext{Shared: a.clientset, Params: params}, nil
}

func (a *Agent) Shutdown(ctx context.Context) error {
	a.clientset = nil
	a.status = domain.AgentUninitialized
	return nil
}

func clientsetFromContext(ctx *domain.SkillContext) (kubernetes.Interface, error) {
	cs, ok := ctx.Shared.(kubernetes.Interface)
	if !ok {
		return nil, domain.ConnectionError(fmt.Errorf("expected kubernetes.Interface in skill context"))
	}
	return cs, nil
}

// ownerOf reports the first owner reference's kind/name, if any.
func ownerOf(pod corev1.Pod) (hasOwner bool, kind string, name string) {
	if len(pod.OwnerReferences) == 0 {
		return false, "", ""
	}
	return true, pod.OwnerReferences[0].Kind, pod.OwnerReferences[0].Name
}
