// Package catalog defines the declarative service model Voyage visualizes:
// services, their commands and subscriptions, and the addresses that link them.
package catalog

// Schema is a free-form OpenAPI schema object.
type Schema map[string]any

// HTTPMethod is the HTTP verb of a REST endpoint.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// Address references a service target by name, not by pointer.
type Address struct {
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	ServiceTarget  string `json:"serviceTarget" yaml:"serviceTarget"`
}

func (a Address) String() string {
	return a.ServiceName + "/" + a.ServiceVersion + "/" + a.ServiceTarget
}

// Project groups the services of one deployment.
type Project struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Markdown    string    `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Services    []Service `json:"services" yaml:"services"`
}

// Service is identified by its (Name, Version) pair.
type Service struct {
	Name          string         `json:"name" yaml:"name"`
	Version       string         `json:"version" yaml:"version"`
	Deprecated    bool           `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Description   string         `json:"description" yaml:"description"`
	Markdown      string         `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Commands      []Command      `json:"commands" yaml:"commands"`
	Subscriptions []Subscription `json:"subscriptions" yaml:"subscriptions"`
}

// CustomEvent is an event a command or subscription may publish while running.
type CustomEvent struct {
	EventName   string `json:"eventName" yaml:"eventName"`
	Description string `json:"description" yaml:"description"`
	IsHappyPath bool   `json:"isHappyPath" yaml:"isHappyPath"`
}

// Parameter is a REST path or query parameter.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required" yaml:"required"`
}

// RestAPI exposes a command as an HTTP endpoint.
type RestAPI struct {
	Method      HTTPMethod  `json:"method" yaml:"method"`
	Path        string      `json:"path" yaml:"path"`
	Summary     string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameter   []Parameter `json:"parameter,omitempty" yaml:"parameter,omitempty"`
	ErrorCodes  []int       `json:"errorCodes,omitempty" yaml:"errorCodes,omitempty"`
	IsProtected bool        `json:"isProtected,omitempty" yaml:"isProtected,omitempty"`
	OperationID string      `json:"operationId,omitempty" yaml:"operationId,omitempty"`
}

// Payload carries the schema and encoding fields shared by commands and subscriptions.
type Payload struct {
	ParameterSchema       Schema `json:"parameterSchema,omitempty" yaml:"parameterSchema,omitempty"`
	InputSchema           Schema `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`
	ContentTypeInput      string `json:"contentTypeInput,omitempty" yaml:"contentTypeInput,omitempty"`
	ContentEncodingInput  string `json:"contentEncodingInput,omitempty" yaml:"contentEncodingInput,omitempty"`
	OutputSchema          Schema `json:"outputSchema,omitempty" yaml:"outputSchema,omitempty"`
	ContentTypeOutput     string `json:"contentTypeOutput,omitempty" yaml:"contentTypeOutput,omitempty"`
	ContentEncodingOutput string `json:"contentEncodingOutput,omitempty" yaml:"contentEncodingOutput,omitempty"`
}

// Command is a synchronously invokable service operation.
type Command struct {
	Name                  string        `json:"name" yaml:"name"`
	Deprecated            bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Description           string        `json:"description" yaml:"description"`
	Markdown              string        `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Payload               `yaml:",inline"`
	EventName             string        `json:"eventName,omitempty" yaml:"eventName,omitempty"`
	Invokes               []Address     `json:"invokes" yaml:"invokes"`
	PublishesCustomEvents []CustomEvent `json:"publishesCustomEvents,omitempty" yaml:"publishesCustomEvents,omitempty"`
	RestAPI               *RestAPI      `json:"restApi,omitempty" yaml:"restApi,omitempty"`
}

// SenderFilter restricts a subscription to messages from a given sender or receiver.
// Empty fields match anything.
type SenderFilter struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Target     string `json:"target,omitempty" yaml:"target,omitempty"`
	InstanceID string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`
}

// SubscribesTo holds the matching criteria of a subscription.
type SubscribesTo struct {
	EventName   string        `json:"eventname,omitempty" yaml:"eventname,omitempty"`
	MessageType MessageType   `json:"messageType,omitempty" yaml:"messageType,omitempty"`
	PrincipalID string        `json:"principalId,omitempty" yaml:"principalId,omitempty"`
	Sender      *SenderFilter `json:"sender,omitempty" yaml:"sender,omitempty"`
	Receiver    *SenderFilter `json:"receiver,omitempty" yaml:"receiver,omitempty"`
}

// Subscription is a service operation triggered by matching messages.
type Subscription struct {
	Name                  string        `json:"name" yaml:"name"`
	Deprecated            bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Description           string        `json:"description" yaml:"description"`
	Markdown              string        `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	SubscribesTo          SubscribesTo  `json:"subscribesTo" yaml:"subscribesTo"`
	Payload               `yaml:",inline"`
	EventName             string        `json:"eventName,omitempty" yaml:"eventName,omitempty"`
	Invokes               []Address     `json:"invokes" yaml:"invokes"`
	PublishesCustomEvents []CustomEvent `json:"publishesCustomEvents,omitempty" yaml:"publishesCustomEvents,omitempty"`
}

// Endpoint is the HTTP facade of a command that declares a RestAPI.
type Endpoint struct {
	Name          string      `json:"name"`
	ServiceName   string      `json:"serviceName"`
	ServiceTarget string      `json:"serviceTarget"`
	Title         string      `json:"title"`
	Summary       string      `json:"summary,omitempty"`
	Description   string      `json:"description"`
	Method        HTTPMethod  `json:"method"`
	Path          string      `json:"path"`
	Tags          []string    `json:"tags"`
	Parameter     []Parameter `json:"parameter"`
	IsProtected   bool        `json:"isProtected"`
	IsDeprecated  bool        `json:"isDeprecated"`
	OperationID   string      `json:"operationId,omitempty"`
	InputSchema   Schema      `json:"inputSchema,omitempty"`
	OutputSchema  Schema      `json:"outputSchema,omitempty"`
}

// NewEndpoint derives the endpoint exposed by cmd of service svc.
// It returns nil when the command has no RestAPI.
func NewEndpoint(svc Service, cmd Command) *Endpoint {
	if cmd.RestAPI == nil {
		return nil
	}
	api := cmd.RestAPI
	return &Endpoint{
		Name:          string(api.Method) + ": v" + svc.Version + "/" + api.Path,
		ServiceName:   svc.Name,
		ServiceTarget: cmd.Name,
		Title:         cmd.Name,
		Summary:       api.Summary,
		Description:   cmd.Description,
		Method:        api.Method,
		Path:          api.Path,
		Tags:          api.Tags,
		Parameter:     api.Parameter,
		IsProtected:   api.IsProtected,
		IsDeprecated:  svc.Deprecated || cmd.Deprecated,
		OperationID:   api.OperationID,
		InputSchema:   cmd.InputSchema,
		OutputSchema:  cmd.OutputSchema,
	}
}
