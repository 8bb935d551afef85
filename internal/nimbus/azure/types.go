package azure

import (
	"fmt"
	"strings"
)

// Item is the display contract shared by everything a listing turn can
// enumerate: resource groups and individual resources.
type Item interface {
	// Kind returns the item kind name used as the header line of a listing.
	Kind() string
	// Display returns the single-line bullet form of the item.
	Display() string
}

// ResourceGroup is one resource group as returned by the management API.
type ResourceGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Kind implements Item.
func (g ResourceGroup) Kind() string { return "ResourceGroup" }

// Display implements Item. Groups are displayed by name alone.
func (g ResourceGroup) Display() string { return g.Name }

// Resource is one resource as returned by the management API. RawType holds
// the slash-delimited provider path (e.g. "Microsoft.Web/sites").
type Resource struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	RawType string `json:"type"`
}

// Kind implements Item.
func (r Resource) Kind() string { return "Resource" }

// Display implements Item, rendering "<short type> - <name>".
func (r Resource) Display() string {
	return fmt.Sprintf("%s - %s", r.ShortType(), r.Name)
}

// ShortType returns the final segment of the provider type path, e.g. "sites"
// for "Microsoft.Web/sites". An empty RawType yields "".
func (r Resource) ShortType() string {
	if r.RawType == "" {
		return ""
	}
	parts := strings.Split(r.RawType, "/")
	return parts[len(parts)-1]
}

// ResourceGroupName derives the owning resource group from the resource ID
// path: the segment following the case-insensitive "resourceGroups" literal.
// An ID without that segment is malformed and yields an error rather than a
// guessed group.
func (r Resource) ResourceGroupName() (string, error) {
	segments := strings.Split(r.ID, "/")
	for i, seg := range segments {
		if strings.EqualFold(strings.TrimSpace(seg), "resourcegroups") {
			if i+1 >= len(segments) || segments[i+1] == "" {
				return "", fmt.Errorf("resource id %q: no segment after resourceGroups", r.ID)
			}
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("resource id %q: no resourceGroups segment", r.ID)
}
