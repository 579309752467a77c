// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with `swag init -g internal/platform/httpserver/server.go -o internal/platform/httpserver/docs`.
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
        "/v1/documents": {
            "get": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Rank documents by score",
                "parameters": [
                    {"type": "string", "description": "Document kind filter", "name": "kind", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.RankingResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Create a votable document",
                "parameters": [
                    {"type": "string", "description": "Author id", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "Document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Get document with voter sets",
                "parameters": [
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}/upvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Upvote a document",
                "parameters": [
                    {"type": "string", "description": "Voter id", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}/downvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Downvote a document",
                "parameters": [
                    {"type": "string", "description": "Voter id", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}/vote": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Withdraw the caller's vote",
                "parameters": [
                    {"type": "string", "description": "Voter id", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}/votes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Get vote counts for a document",
                "parameters": [
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.DocumentTallyResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/documents/{document_id}/votes/{voter_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["document-voting"],
                "summary": "Get one voter's state on a document",
                "parameters": [
                    {"type": "string", "description": "Document id", "name": "document_id", "in": "path", "required": true},
                    {"type": "string", "description": "Voter id", "name": "voter_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VoterStatusResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "http.CreateDocumentRequest": {
            "type": "object",
            "properties": {"kind": {"type": "string"}, "body": {"type": "string"}}
        },
        "http.TallyResponse": {
            "type": "object",
            "properties": {
                "upvotes": {"type": "integer"},
                "downvotes": {"type": "integer"},
                "total": {"type": "integer"},
                "score": {"type": "integer"}
            }
        },
        "http.DocumentResponse": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "kind": {"type": "string"},
                "body": {"type": "string"},
                "author_id": {"type": "string"},
                "voter_kind": {"type": "string"},
                "positive": {"type": "array", "items": {"type": "string"}},
                "negative": {"type": "array", "items": {"type": "string"}},
                "tally": {"$ref": "#/definitions/http.TallyResponse"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "http.VoteResponse": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "voter_id": {"type": "string"},
                "previous": {"type": "string"},
                "current": {"type": "string"},
                "changed": {"type": "boolean"},
                "tally": {"$ref": "#/definitions/http.TallyResponse"}
            }
        },
        "http.DocumentTallyResponse": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "tally": {"$ref": "#/definitions/http.TallyResponse"}
            }
        },
        "http.VoterStatusResponse": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "voter_id": {"type": "string"},
                "voted": {"type": "boolean"},
                "upvoted": {"type": "boolean"},
                "downvoted": {"type": "boolean"},
                "state": {"type": "string"}
            }
        },
        "http.RankingItem": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "kind": {"type": "string"},
                "tally": {"$ref": "#/definitions/http.TallyResponse"},
                "rank": {"type": "integer"}
            }
        },
        "http.RankingResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.RankingItem"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "docvote API",
	Description:      "Upvote, downvote, and tally stored documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
