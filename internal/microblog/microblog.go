// Package microblog declares the two resources of the example microblog
// service: people and their posts.
package microblog

import (
	"fmt"
	"time"

	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/validation"
)

func now() any { return time.Now().UTC() }

// PersonDefinition describes a person. Only the names are needed to create
// one.
func PersonDefinition() resource.Definition {
	return resource.Definition{
		"firstName": {Type: store.TypeString, Required: true, Rule: validation.String()},
		"lastName":  {Type: store.TypeString, Required: true, Rule: validation.String()},
		"createdOn": {Type: store.TypeDate, Default: now, Rule: validation.Date()},
	}
}

// PostDefinition describes a post. likedBy holds person ids.
func PostDefinition() resource.Definition {
	return resource.Definition{
		"text":      {Type: store.TypeString, Required: true, Rule: validation.String()},
		"createdOn": {Type: store.TypeDate, Default: now, Rule: validation.Date()},
		"likedBy": {
			Type:    store.TypeIDs,
			Default: func() any { return []string{} },
			Rule:    validation.Array(validation.String()),
		},
		// Required in storage but filled by the default when omitted.
		"timestamp": {Type: store.TypeDate, Required: true, Default: now, Rule: validation.Date()},
	}
}

// Resources builds both resources with opts.
func Resources(opts ...resource.Option) ([]*resource.Resource, error) {
	person, err := resource.Decorate(PersonDefinition(), "people", "Person", "person", opts...)
	if err != nil {
		return nil, fmt.Errorf("microblog: person: %w", err)
	}

	post, err := resource.Decorate(PostDefinition(), "posts", "Post", "post", opts...)
	if err != nil {
		return nil, fmt.Errorf("microblog: post: %w", err)
	}

	return []*resource.Resource{person, post}, nil
}
