package utcp

// Auth is the polymorphic authentication descriptor attached to a
// CallTemplate. Concrete variants are ApiKeyAuth, BasicAuth, and
// OAuth2Auth, discriminated by AuthType. Grounded on data/auth.py and
// data/auth_implementations/{api_key,basic,oauth2}_auth.go.
type Auth interface {
	AuthType() string
}

// APIKeyAuthLocation enumerates where an API key is placed on the wire.
type APIKeyAuthLocation string

const (
	APIKeyLocationHeader APIKeyAuthLocation = "header"
	APIKeyLocationQuery  APIKeyAuthLocation = "query"
	APIKeyLocationCookie APIKeyAuthLocation = "cookie"
)

// ApiKeyAuth authenticates via an API key placed in a header, query
// parameter, or cookie. Grounded on api_key_auth.py.
type ApiKeyAuth struct {
	// APIKey is the key value itself. Values starting with "$" or of the
	// form "${...}" are resolved through the variable substitutor before
	// a transport uses them.
	APIKey string
	// VarName is the name of the header/query-parameter/cookie carrying
	// the key. Defaults to "X-Api-Key".
	VarName string
	// Location selects where the key is placed. Defaults to "header".
	Location APIKeyAuthLocation
}

func (ApiKeyAuth) AuthType() string { return "api_key" }

// BasicAuth authenticates via HTTP Basic Authentication. Grounded on
// basic_auth.py.
type BasicAuth struct {
	Username string
	Password string
}

func (BasicAuth) AuthType() string { return "basic" }

// OAuth2Auth authenticates via the OAuth2 client-credentials grant.
// Grounded on oauth2_auth.py. The transport is responsible for caching the
// token response keyed by ClientID and reusing it until expiry (spec.md §3,
// §9's OAuth2 token cache design note).
type OAuth2Auth struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string // empty means unset
}

func (OAuth2Auth) AuthType() string { return "oauth2" }

// AuthSerializer is the dispatcher serializer for Auth, delegating to the
// plugin registry's auth table keyed by AuthType. Grounded on
// data/auth.py's AuthSerializer.
type AuthSerializer struct {
	// Lookup resolves an auth_type tag to its concrete DictSerializer.
	Lookup func(tag string) (DictSerializer[Auth], bool)
}

func (s AuthSerializer) ToDict(obj Auth) (map[string]any, error) {
	if obj == nil {
		return nil, nil
	}
	impl, ok := s.Lookup(obj.AuthType())
	if !ok {
		return nil, &ErrUnknownTag{Table: "auth", Tag: obj.AuthType()}
	}
	return impl.ToDict(obj)
}

func (s AuthSerializer) ValidateDict(data map[string]any) (Auth, error) {
	tag, _ := data["auth_type"].(string)
	impl, ok := s.Lookup(tag)
	if !ok {
		return nil, &ErrUnknownTag{Table: "auth", Tag: tag}
	}
	return impl.ValidateDict(data)
}

// ApiKeyAuthSerializer serializes ApiKeyAuth. Grounded on api_key_auth.py's
// ApiKeyAuthSerializer.
type ApiKeyAuthSerializer struct{}

func (ApiKeyAuthSerializer) ToDict(obj Auth) (map[string]any, error) {
	a, ok := obj.(ApiKeyAuth)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected ApiKeyAuth"}
	}
	location := a.Location
	if location == "" {
		location = APIKeyLocationHeader
	}
	varName := a.VarName
	if varName == "" {
		varName = "X-Api-Key"
	}
	return map[string]any{
		"auth_type": "api_key",
		"api_key":   a.APIKey,
		"var_name":  varName,
		"location":  string(location),
	}, nil
}

func (ApiKeyAuthSerializer) ValidateDict(data map[string]any) (Auth, error) {
	key, _ := data["api_key"].(string)
	if key == "" {
		return nil, &ErrSerializerValidation{Path: "api_key", Message: "required field missing"}
	}
	varName, _ := data["var_name"].(string)
	if varName == "" {
		varName = "X-Api-Key"
	}
	location, _ := data["location"].(string)
	switch APIKeyAuthLocation(location) {
	case APIKeyLocationHeader, APIKeyLocationQuery, APIKeyLocationCookie:
	case "":
		location = string(APIKeyLocationHeader)
	default:
		return nil, &ErrSerializerValidation{Path: "location", Message: "must be one of header, query, cookie"}
	}
	return ApiKeyAuth{APIKey: key, VarName: varName, Location: APIKeyAuthLocation(location)}, nil
}

// BasicAuthSerializer serializes BasicAuth. Grounded on basic_auth.py's
// BasicAuthSerializer.
type BasicAuthSerializer struct{}

func (BasicAuthSerializer) ToDict(obj Auth) (map[string]any, error) {
	a, ok := obj.(BasicAuth)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected BasicAuth"}
	}
	return map[string]any{"auth_type": "basic", "username": a.Username, "password": a.Password}, nil
}

func (BasicAuthSerializer) ValidateDict(data map[string]any) (Auth, error) {
	username, _ := data["username"].(string)
	password, _ := data["password"].(string)
	if username == "" {
		return nil, &ErrSerializerValidation{Path: "username", Message: "required field missing"}
	}
	if password == "" {
		return nil, &ErrSerializerValidation{Path: "password", Message: "required field missing"}
	}
	return BasicAuth{Username: username, Password: password}, nil
}

// OAuth2AuthSerializer serializes OAuth2Auth. Grounded on oauth2_auth.py's
// OAuth2AuthSerializer.
type OAuth2AuthSerializer struct{}

func (OAuth2AuthSerializer) ToDict(obj Auth) (map[string]any, error) {
	a, ok := obj.(OAuth2Auth)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected OAuth2Auth"}
	}
	out := map[string]any{
		"auth_type":     "oauth2",
		"token_url":     a.TokenURL,
		"client_id":     a.ClientID,
		"client_secret": a.ClientSecret,
	}
	if a.Scope != "" {
		out["scope"] = a.Scope
	}
	return out, nil
}

func (OAuth2AuthSerializer) ValidateDict(data map[string]any) (Auth, error) {
	tokenURL, _ := data["token_url"].(string)
	clientID, _ := data["client_id"].(string)
	clientSecret, _ := data["client_secret"].(string)
	if tokenURL == "" || clientID == "" || clientSecret == "" {
		return nil, &ErrSerializerValidation{Path: "oauth2", Message: "token_url, client_id, and client_secret are required"}
	}
	scope, _ := data["scope"].(string)
	return OAuth2Auth{TokenURL: tokenURL, ClientID: clientID, ClientSecret: clientSecret, Scope: scope}, nil
}
