package stores

import (
	"fmt"
	"strings"

	"github.com/PrayerLoop/recordsync/models"
)

// Dataset is a typed local namespace. The primary list lives at the
// namespace key itself; derived lists live at "<namespace>:<view>" and child
// datasets at "<namespace>/<scope>".
type Dataset struct {
	Namespace string
}

func (d Dataset) Key() string {
	return d.Namespace
}

func (d Dataset) View(name string) string {
	return d.Namespace + ":" + name
}

// Child scopes a dataset to a parent record or recipient.
func (d Dataset) Child(scope string) Dataset {
	return Dataset{Namespace: d.Namespace + "/" + scope}
}

// Owns reports whether key is the primary list or one of its views.
func (d Dataset) Owns(key string) bool {
	return key == d.Namespace || strings.HasPrefix(key, d.Namespace+":")
}

const likesNamespace = "likes"

var defaultNamespaces = map[models.Collection]string{
	models.CollectionPrayer:           "community-prayers",
	models.CollectionPrayerRequest:    "prayer-requests",
	models.CollectionCommunity:        "local-communities",
	models.CollectionPartnerPrayer:    "partner-prayers",
	models.CollectionPartnerWord:      "partner-words",
	models.CollectionPartnerScripture: "partner-scriptures",
	models.CollectionNotification:     "notifications",
	models.CollectionComment:          "comments",
}

// Registry maps collections to their local datasets. Build it once at
// startup and share it.
type Registry struct {
	datasets map[models.Collection]Dataset
	used     map[string]models.Collection
}

func NewRegistry() *Registry {
	r := &Registry{
		datasets: make(map[models.Collection]Dataset),
		used:     map[string]models.Collection{likesNamespace: ""},
	}
	for c, ns := range defaultNamespaces {
		r.datasets[c] = Dataset{Namespace: ns}
		r.used[ns] = c
	}
	return r
}

// Register overrides the namespace of a collection.
func (r *Registry) Register(c models.Collection, namespace string) error {
	if namespace == "" || strings.ContainsAny(namespace, ":/") {
		return fmt.Errorf("invalid namespace %q", namespace)
	}
	if owner, taken := r.used[namespace]; taken && owner != c {
		return fmt.Errorf("namespace %q already registered", namespace)
	}
	if old, ok := r.datasets[c]; ok {
		delete(r.used, old.Namespace)
	}
	r.datasets[c] = Dataset{Namespace: namespace}
	r.used[namespace] = c
	return nil
}

func (r *Registry) Dataset(c models.Collection) Dataset {
	d, ok := r.datasets[c]
	if !ok {
		panic(fmt.Sprintf("stores: no dataset registered for collection %q", c))
	}
	return d
}

// LikesKey is the device-local like index of a principal.
func (r *Registry) LikesKey(principalID string) string {
	return likesNamespace + ":" + principalID
}
