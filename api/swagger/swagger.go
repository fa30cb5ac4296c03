package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Result API",
        "description": "Record, edit, view and export academic exam results",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration, login and profile"},
        {"name": "Results", "description": "Owner-scoped exam results"},
        {"name": "Export", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated"},
                    "401": {"description": "Refresh token invalid"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Session revoked"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user profile",
                "responses": {
                    "200": {"description": "Profile with result count"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/profile": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Update profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "Profile updated"},
                    "401": {"description": "Current password incorrect"},
                    "409": {"description": "Email already in use"}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List results with stats",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "Dashboard payload"}
                }
            },
            "post": {
                "tags": ["Results"],
                "summary": "Add a result",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "student_name", "in": "formData", "type": "string", "required": true},
                    {"name": "board", "in": "formData", "type": "string"},
                    {"name": "exam", "in": "formData", "type": "string"},
                    {"name": "school", "in": "formData", "type": "string"},
                    {"name": "class_name", "in": "formData", "type": "string"},
                    {"name": "year", "in": "formData", "type": "integer"},
                    {"name": "subjects", "in": "formData", "type": "string", "description": "JSON array of {name, obtained, total}"},
                    {"name": "image", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Result created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/results/{id}": {
            "get": {
                "tags": ["Results"],
                "summary": "View one result",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Result with subjects"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Results"],
                "summary": "Edit a result",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Result updated"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Results"],
                "summary": "Delete a result",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/results/export/csv": {
            "get": {
                "tags": ["Export"],
                "summary": "Export results as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "my_results.csv attachment"}
                }
            }
        },
        "/results/{id}/pdf": {
            "get": {
                "tags": ["Export"],
                "summary": "Export one result as a marksheet PDF",
                "produces": ["application/pdf"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "PDF attachment"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password", "confirm_password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpdateProfileRequest": {
            "type": "object",
            "required": ["current_password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "current_password": {"type": "string"},
                "new_password": {"type": "string"},
                "confirm_new_password": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
