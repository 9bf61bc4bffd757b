package extension

import "github.com/crateforge/crate/internal/descriptor"

func init() {
	Register(webService{})
	Register(queueWorker{})
}

// Defaults for packaging an HTTP service.
//
// Contributes an ingress endpoint, a workload container, and a part that
// stages the service source.
type webService struct{}

func (webService) Name() string { return "web-service" }

func (webService) Experimental() bool { return false }

func (webService) Bases() []descriptor.Base {
	return []descriptor.Base{
		{Name: "ubuntu", Channel: "22.04"},
		{Name: "ubuntu", Channel: "24.04"},
	}
}

func (webService) Defaults() Fragment {
	return Fragment{
		Config: map[string]any{
			"port": map[string]any{
				"type":        "int",
				"default":     8080,
				"description": "Port the service listens on.",
			},
		},
		Endpoints: map[string]descriptor.Endpoint{
			"ingress": {Interface: "ingress", Role: "requires", Optional: true},
			"logging": {Interface: "loki_push_api", Role: "requires", Optional: true},
		},
		Parts: map[string]descriptor.Part{
			"web-service/app": {Plugin: "dump", Source: "."},
		},
		Containers: map[string]descriptor.Container{
			"web-service": {Resource: "web-service-image"},
		},
		Resources: map[string]descriptor.Resource{
			"web-service-image": {Type: "oci-image", Description: "Service workload image."},
		},
	}
}

// Defaults for packaging a background queue consumer.
//
// Gated behind the experimental toggle until its contributed interface
// names settle.
type queueWorker struct{}

func (queueWorker) Name() string { return "queue-worker" }

func (queueWorker) Experimental() bool { return true }

func (queueWorker) Bases() []descriptor.Base {
	return []descriptor.Base{
		{Name: "ubuntu", Channel: "24.04"},
	}
}

func (queueWorker) Defaults() Fragment {
	return Fragment{
		Config: map[string]any{
			"concurrency": map[string]any{
				"type":        "int",
				"default":     4,
				"description": "Number of concurrent queue consumers.",
			},
		},
		Endpoints: map[string]descriptor.Endpoint{
			"broker": {Interface: "amqp", Role: "requires"},
		},
		Parts: map[string]descriptor.Part{
			"queue-worker/app": {Plugin: "dump", Source: "."},
		},
		Containers: map[string]descriptor.Container{
			"queue-worker": {Resource: "queue-worker-image"},
		},
		Resources: map[string]descriptor.Resource{
			"queue-worker-image": {Type: "oci-image", Description: "Worker workload image."},
		},
	}
}
