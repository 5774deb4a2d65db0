// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package remote runs commands inside helper pods scheduled on cluster nodes.
// The policy core only uses it to read interface attributes that are not part
// of the NodeNetworkState report, such as the current MTU of a port.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// NodePod identifies a helper pod running on a target node.
type NodePod struct {
	// NodeName is the name of the node the pod is scheduled on.
	NodeName string `json:"nodeName"`
	// Namespace is the namespace of the helper pod.
	Namespace string `json:"namespace"`
	// Name is the name of the helper pod.
	Name string `json:"name"`
	// Container optionally selects a container, the pod default is used otherwise.
	Container string `json:"container,omitempty"`
}

// Executor runs a command inside a pod and returns its stdout.
type Executor interface {
	ExecOnPod(ctx context.Context, pod NodePod, command []string) (string, error)
}

type spdyExecutor struct {
	config    *rest.Config
	clientset kubernetes.Interface
}

// NewExecutor creates an Executor that streams the command over the exec
// subresource of the pod.
func NewExecutor(config *rest.Config) (Executor, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset for pod executor: %w", err)
	}
	return &spdyExecutor{config: config, clientset: clientset}, nil
}

func (e *spdyExecutor) ExecOnPod(ctx context.Context, pod NodePod, command []string) (string, error) {
	req := e.clientset.CoreV1().RESTClient().
		Post().
		Resource("pods").
		Namespace(pod.Namespace).
		Name(pod.Name).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: pod.Container,
			Command:   command,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.config, http.MethodPost, req.URL())
	if err != nil {
		return "", fmt.Errorf("failed to create executor for pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}
	var stdout, stderr bytes.Buffer
	if err := executor.StreamWithContext(ctx, remotecommand.StreamOptions{Stdout: &stdout, Stderr: &stderr}); err != nil {
		return "", fmt.Errorf("failed to run %v in pod %s/%s: %w, stderr: %s", command, pod.Namespace, pod.Name, err, stderr.String())
	}
	return stdout.String(), nil
}

// ReadMTU reads the current MTU of a port on the node the pod runs on.
func ReadMTU(ctx context.Context, executor Executor, pod NodePod, port string) (int, error) {
	out, err := executor.ExecOnPod(ctx, pod, []string{"cat", fmt.Sprintf("/sys/class/net/%s/mtu", port)})
	if err != nil {
		return 0, err
	}
	mtu, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected MTU value %q for port %s on node %s: %w", strings.TrimSpace(out), port, pod.NodeName, err)
	}
	return mtu, nil
}
