// Package docs registers the OpenAPI document served at /swagger when
// SWAGGER_ENABLED is set. Regenerate with `swag init -g cmd/announcements/main.go`.
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
        "/announcements": {
            "get": {
                "produces": ["application/json"],
                "tags": ["announcements"],
                "summary": "List announcements with aggregates",
                "parameters": [
                    {"type": "string", "description": "Previously seen ETag", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.AnnouncementView"}}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["announcements"],
                "summary": "Create an announcement",
                "parameters": [
                    {"description": "Announcement", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAnnouncementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Announcement"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Page through comments",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Last comment ID of the previous page", "name": "cursor", "in": "query"},
                    {"type": "integer", "description": "Page size (1-50, default 10)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CommentPage"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Add a comment",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"description": "Comment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Comment"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/announcements/{id}/reactions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reactions"],
                "summary": "Set the caller's reaction",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Deduplication key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Reaction", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddReactionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["reactions"],
                "summary": "Remove the caller's reaction",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Reacting user", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Announcement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.AnnouncementView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "commentCount": {"type": "integer"},
                "reactions": {"$ref": "#/definitions/domain.ReactionCounts"},
                "lastActivityAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.ReactionCounts": {
            "type": "object",
            "properties": {
                "up": {"type": "integer"},
                "down": {"type": "integer"},
                "heart": {"type": "integer"}
            }
        },
        "domain.Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "announcementId": {"type": "string"},
                "authorName": {"type": "string"},
                "text": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.CommentPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "nextCursor": {"type": "string"}
            }
        },
        "handlers.CreateAnnouncementRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {"title": {"type": "string", "maxLength": 200, "minLength": 1}}
        },
        "handlers.CreateCommentRequest": {
            "type": "object",
            "required": ["authorName", "text"],
            "properties": {
                "authorName": {"type": "string"},
                "text": {"type": "string", "maxLength": 500, "minLength": 1}
            }
        },
        "handlers.AddReactionRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["up", "down", "heart"]},
                "userId": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Announcements API",
	Description:      "Community board: announcements, comments and reactions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
