package catalog

import "fmt"

// DemoProjectID identifies the built-in example project.
const DemoProjectID = "demo"

const serviceReadme = `
# About the %s service

If a readme file exists in the root of a service version, its content is shown here.
`

func userProfileSchema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"id":        map[string]any{"type": "string", "title": "the unique user id of user", "format": "uuid"},
			"firstName": map[string]any{"type": "string", "title": "first name of user", "example": "Sherlock"},
			"lastName":  map[string]any{"type": "string", "title": "last name of user", "example": "Holmes"},
			"gender":    map[string]any{"type": "string", "example": "male", "enum": []any{"male", "female", "other"}},
			"email":     map[string]any{"type": "string", "title": "email of user", "example": "catch-moriarty@holmes.com", "format": "email"},
		},
		"required": []any{"id", "firstName", "lastName", "gender", "email"},
	}
}

func tokenSchema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "title": "the unique user id of user", "format": "uuid"},
			"token": map[string]any{"type": "string", "title": "the validation token", "format": "uuid"},
		},
	}
}

// ExampleServices returns the services of the demo project. Every call
// returns fresh values.
func ExampleServices() []Service {
	userSignUp := Command{
		Name:        "userSignUp",
		EventName:   "new-user-registered",
		Description: "A new user has been registered",
		Payload: Payload{
			InputSchema: Schema{
				"type":        "object",
				"title":       "Signup user information",
				"description": "The payload sent via HTTP-POST request",
				"properties": map[string]any{
					"firstName": map[string]any{"type": "string", "example": "Sherlock"},
					"lastName":  map[string]any{"type": "string", "example": "Holmes"},
					"email":     map[string]any{"type": "string", "format": "email"},
					"password":  map[string]any{"type": "string"},
				},
				"required": []any{"firstName", "lastName", "email", "password"},
			},
			ParameterSchema: Schema{
				"type": "object",
				"properties": map[string]any{
					"sessionId": map[string]any{"type": "string", "format": "uuid"},
				},
			},
			OutputSchema: userProfileSchema(),
		},
		RestAPI: &RestAPI{Method: MethodPost, Path: "signUp"},
		Invokes: []Address{},
	}

	getUserByID := Command{
		Name:        "getUserById",
		Description: "Returns user information for given id",
		Payload: Payload{
			InputSchema: Schema{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "format": "uuid"},
				},
				"required": []any{"id"},
			},
			OutputSchema: userProfileSchema(),
		},
		RestAPI: &RestAPI{Method: MethodGet, Path: "users/:userId", IsProtected: true},
		Invokes: []Address{},
	}

	createEmailValidateToken := Subscription{
		Name:        "createEmailValidateToken",
		Description: "Creates a token used for email validation",
		EventName:   "validation-token-created",
		SubscribesTo: SubscribesTo{
			EventName: "new-user-registered",
			Sender:    &SenderFilter{Name: "User"},
		},
		Invokes: []Address{
			{ServiceName: "User", ServiceVersion: "1", ServiceTarget: "getUserById"},
		},
		Payload: Payload{
			InputSchema:  userProfileSchema(),
			OutputSchema: tokenSchema(),
		},
	}

	sendEmailVerification := Subscription{
		Name:        "sendEmailVerification",
		Description: "Sends an email with some verification link",
		SubscribesTo: SubscribesTo{
			EventName: "validation-token-created",
			Sender:    &SenderFilter{Name: "Identity"},
		},
		Invokes: []Address{},
		Payload: Payload{
			OutputSchema: tokenSchema(),
		},
	}

	return []Service{
		{
			Name:          "User",
			Version:       "1",
			Deprecated:    true,
			Description:   "Manages users and user information",
			Markdown:      readme("User"),
			Commands:      []Command{userSignUp, getUserByID},
			Subscriptions: []Subscription{},
		},
		{
			Name:          "Email",
			Version:       "1",
			Description:   "Sends emails to users",
			Markdown:      readme("Email"),
			Commands:      []Command{},
			Subscriptions: []Subscription{sendEmailVerification},
		},
		{
			Name:          "Identity",
			Version:       "1",
			Description:   "Verifies the users identity",
			Markdown:      readme("Identity"),
			Commands:      []Command{},
			Subscriptions: []Subscription{createEmailValidateToken},
		},
		{
			Name:          "BankAccount",
			Version:       "1",
			Description:   "Manages users bank account",
			Markdown:      readme("BankAccount"),
			Commands:      []Command{},
			Subscriptions: []Subscription{},
		},
	}
}

// Example returns the demo project.
func Example() Project {
	return Project{
		ID:          DemoProjectID,
		Name:        "Example demo",
		Description: "A simple example for Voyage",
		Markdown:    "This is an example project which demonstrates the basic features of Voyage.",
		Services:    ExampleServices(),
	}
}

func readme(service string) string {
	return fmt.Sprintf(serviceReadme, service)
}
