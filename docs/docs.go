// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g internal/http/router.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sync/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Queue state",
                "operationId": "getSyncStatus",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.QueueState"}}}
            }
        },
        "/sync/actions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "List pending actions",
                "operationId": "listActions",
                "parameters": [
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "maximum": 200, "minimum": 1, "name": "page_size", "in": "query"},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListActionsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Enqueue a deferred mutation",
                "operationId": "enqueueAction",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"type": "string", "name": "X-Client-ID", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.EnqueueActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Idempotent replay", "schema": {"$ref": "#/definitions/handlers.EnqueueActionResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.EnqueueActionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Sync"],
                "summary": "Clear the queue",
                "operationId": "clearActions",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sync/actions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Get a pending action",
                "operationId": "getAction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.OfflineAction"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Sync"],
                "summary": "Remove a pending action",
                "operationId": "deleteAction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sync/run": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Run a sync pass",
                "operationId": "runSync",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RunSyncResponse"}}}
            }
        },
        "/sync/connectivity": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Report connectivity",
                "operationId": "setConnectivity",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConnectivityRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.QueueState"}}}
            }
        },
        "/subscriptions": {
            "post": {
                "tags": ["Subscriptions"], "summary": "Create a subscription", "operationId": "createSubscription",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Subscription"}}],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.Subscription"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            }
        },
        "/subscriptions/{id}": {
            "put": {
                "tags": ["Subscriptions"], "summary": "Update a subscription", "operationId": "updateSubscription",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Subscription"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.Subscription"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            },
            "delete": {
                "tags": ["Subscriptions"], "summary": "Delete a subscription", "operationId": "deleteSubscription",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.EntityRef"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            }
        },
        "/categories": {
            "post": {
                "tags": ["Categories"], "summary": "Create a category", "operationId": "createCategory",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Category"}}],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.Category"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            }
        },
        "/categories/{id}": {
            "put": {
                "tags": ["Categories"], "summary": "Update a category", "operationId": "updateCategory",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Category"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.Category"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            },
            "delete": {
                "tags": ["Categories"], "summary": "Delete a category", "operationId": "deleteCategory",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.EntityRef"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            }
        },
        "/users/me": {
            "put": {
                "tags": ["Users"], "summary": "Update the signed-in user's profile", "operationId": "updateProfile",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.UserProfile"}}],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/domain.UserProfile"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/domain.OfflineAction"}}
                }
            }
        }
    },
    "definitions": {
        "domain.OfflineAction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["create", "update", "delete"]},
                "entity": {"type": "string", "enum": ["subscription", "category", "user"]},
                "data": {"type": "object"},
                "timestamp": {"type": "string", "format": "date-time"},
                "retry_count": {"type": "integer"},
                "max_retries": {"type": "integer"},
                "last_error": {"type": "string"}
            }
        },
        "domain.Subscription": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "amount": {"type": "number"},
                "currency": {"type": "string", "example": "USD"},
                "billing_cycle": {"type": "string", "enum": ["weekly", "monthly", "quarterly", "yearly"]},
                "next_billing_date": {"type": "string", "example": "2025-07-01"},
                "category_id": {"type": "string"},
                "notes": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "domain.Category": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "color": {"type": "string", "example": "#ff0000"}
            }
        },
        "domain.UserProfile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "default_currency": {"type": "string"}
            }
        },
        "domain.EntityRef": {"type": "object", "properties": {"id": {"type": "string"}}},
        "services.QueueState": {
            "type": "object",
            "properties": {
                "is_online": {"type": "boolean"},
                "pending_count": {"type": "integer"},
                "sync_in_progress": {"type": "boolean"},
                "last_sync_time": {"type": "string", "format": "date-time"},
                "error": {"type": "string"}
            }
        },
        "services.SyncReport": {
            "type": "object",
            "properties": {
                "attempted": {"type": "integer"},
                "succeeded": {"type": "integer"},
                "retried": {"type": "integer"},
                "dropped": {"type": "integer"},
                "skipped": {"type": "boolean"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListActionsResponse": {
            "type": "object",
            "properties": {
                "actions": {"type": "array", "items": {"$ref": "#/definitions/domain.OfflineAction"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.EnqueueActionRequest": {
            "type": "object",
            "required": ["type", "entity", "data"],
            "properties": {
                "type": {"type": "string"},
                "entity": {"type": "string"},
                "data": {"type": "object"},
                "max_retries": {"type": "integer", "minimum": 0, "maximum": 100}
            }
        },
        "handlers.EnqueueActionResponse": {
            "type": "object",
            "properties": {
                "action_id": {"type": "string"},
                "pending": {"type": "boolean"},
                "action": {"$ref": "#/definitions/domain.OfflineAction"}
            }
        },
        "handlers.RunSyncResponse": {
            "type": "object",
            "properties": {
                "report": {"$ref": "#/definitions/services.SyncReport"},
                "state": {"$ref": "#/definitions/services.QueueState"}
            }
        },
        "handlers.ConnectivityRequest": {
            "type": "object",
            "required": ["online"],
            "properties": {"online": {"type": "boolean"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "recur-sync API",
	Description:      "Local control API for the Recur offline sync queue.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
