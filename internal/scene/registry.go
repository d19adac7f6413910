package scene

import (
	"sync"

	"github.com/halfgrid/scenecore/internal/value"
)

// ResourceTypeScene is the registry discriminant for scene resources.
const ResourceTypeScene = "scene"

// Resource is anything the store facade can hold as its current document.
// Scenes are the only resource type this module ships, but the registry
// keeps the discriminant open for feature-specific resources.
type Resource interface {
	// ResourceType returns the registry discriminant.
	ResourceType() string

	// Serialize returns the resource's persistent JSON form.
	Serialize() value.Object
}

// Constructor builds a resource from its serialized JSON form.
type Constructor func(json value.Object) (Resource, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterResourceType binds a discriminant string to a constructor.
// Later registrations for the same discriminant replace earlier ones.
func RegisterResourceType(resourceType string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[resourceType] = ctor
}

// NewResource constructs a resource of the given type from JSON. An
// unregistered discriminant is a ConfigurationError: the action bus never
// carries resource types the deployment did not register.
func NewResource(resourceType string, json value.Object) (Resource, error) {
	registryMu.RLock()
	ctor, ok := registry[resourceType]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{
			ResourceType: resourceType,
			Message:      "unregistered resource type",
		}
	}
	return ctor(json)
}

func init() {
	RegisterResourceType(ResourceTypeScene, func(json value.Object) (Resource, error) {
		return NewSceneFromJSON(json)
	})
}
