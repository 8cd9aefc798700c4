package client

import (
	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
	"github.com/goadesign/utcp-go/runtime/utcp/variables"
)

// substituteTemplate round-trips tmpl through the registry's
// CallTemplateSerializer to a map, substitutes every ${NAME}/$NAME
// placeholder found anywhere in that map (namespaced by the template's own
// name, per spec.md §4.3), and decodes the result back into a
// CallTemplate. This mirrors utcp_client_implementation.py's approach of
// substituting the provider's serialized dict form rather than walking
// typed struct fields by hand.
func substituteTemplate(sub variables.Substitutor, reg *registry.Registry, tmpl utcp.CallTemplate, cfg *utcp.ClientConfig, namespace string) (utcp.CallTemplate, error) {
	ser := reg.CallTemplateSerializer()
	data, err := ser.ToDict(tmpl)
	if err != nil {
		return nil, err
	}
	substituted, err := sub.Substitute(data, cfg, namespace, osLookupEnv)
	if err != nil {
		return nil, err
	}
	m, ok := substituted.(map[string]any)
	if !ok {
		return nil, nil
	}
	return ser.ValidateDict(m)
}

// collectTemplateVariables adds every placeholder referenced anywhere in
// tmpl's serialized form to seen, namespaced by the template's own name.
func collectTemplateVariables(sub variables.Substitutor, reg *registry.Registry, tmpl utcp.CallTemplate, seen map[string]struct{}) error {
	ser := reg.CallTemplateSerializer()
	data, err := ser.ToDict(tmpl)
	if err != nil {
		return err
	}
	names, err := sub.FindRequiredVariables(data, tmpl.TemplateName())
	if err != nil {
		return err
	}
	for _, n := range names {
		seen[n] = struct{}{}
	}
	return nil
}
