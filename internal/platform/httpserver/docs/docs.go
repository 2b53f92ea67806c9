// Package docs holds the OpenAPI document served under /swagger/.
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
        "/v1/ballots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ballots"],
                "summary": "List ballots, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ballothttp.BallotListResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ballots"],
                "summary": "Open a ballot; the caller becomes chairman",
                "parameters": [
                    {"type": "string", "description": "caller address", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "description": "replay key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "proposal names", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ballothttp.CreateBallotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ballothttp.CreateBallotResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}}
                }
            }
        },
        "/v1/ballots/{ballot_id}/voters": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ballots"],
                "summary": "Register a voter (chairman only)",
                "parameters": [
                    {"type": "string", "description": "ballot id", "name": "ballot_id", "in": "path", "required": true},
                    {"type": "string", "description": "caller address", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "voter", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ballothttp.AddVoterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ballothttp.AddVoterResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}}
                }
            }
        },
        "/v1/ballots/{ballot_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ballots"],
                "summary": "Cast the caller's full weight for one proposal",
                "parameters": [
                    {"type": "string", "description": "ballot id", "name": "ballot_id", "in": "path", "required": true},
                    {"type": "string", "description": "caller address", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "proposal index", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ballothttp.VoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ballothttp.VoteResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}}
                }
            }
        },
        "/v1/ballots/{ballot_id}/delegations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ballots"],
                "summary": "Delegate the caller's weight to another voter",
                "parameters": [
                    {"type": "string", "description": "ballot id", "name": "ballot_id", "in": "path", "required": true},
                    {"type": "string", "description": "caller address", "name": "X-User-Id", "in": "header", "required": true},
                    {"description": "delegate", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ballothttp.DelegateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ballothttp.DelegateResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ballothttp.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ballothttp.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "ballothttp.CreateBallotRequest": {
            "type": "object",
            "properties": {"proposals": {"type": "array", "items": {"type": "string"}}}
        },
        "ballothttp.CreateBallotResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "chairman": {"type": "string"},
                "proposals": {"type": "array", "items": {"type": "string"}},
                "version": {"type": "integer"},
                "replayed": {"type": "boolean"}
            }
        },
        "ballothttp.AddVoterRequest": {
            "type": "object",
            "properties": {"voter": {"type": "string"}}
        },
        "ballothttp.AddVoterResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "voter": {"type": "string"},
                "weight": {"type": "integer"},
                "version": {"type": "integer"},
                "replayed": {"type": "boolean"}
            }
        },
        "ballothttp.VoteRequest": {
            "type": "object",
            "properties": {"proposal": {"type": "integer"}}
        },
        "ballothttp.VoteResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "voter": {"type": "string"},
                "proposal": {"type": "integer"},
                "weight": {"type": "integer"},
                "winning_proposal": {"type": "integer"},
                "version": {"type": "integer"},
                "replayed": {"type": "boolean"}
            }
        },
        "ballothttp.DelegateRequest": {
            "type": "object",
            "properties": {"to": {"type": "string"}}
        },
        "ballothttp.DelegateResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "delegator": {"type": "string"},
                "requested": {"type": "string"},
                "delegate": {"type": "string"},
                "weight": {"type": "integer"},
                "applied": {"type": "boolean"},
                "proposal": {"type": "integer"},
                "winning_proposal": {"type": "integer"},
                "version": {"type": "integer"},
                "replayed": {"type": "boolean"}
            }
        },
        "ballothttp.BallotListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"type": "object"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ballot Engine API",
	Description:      "Weighted, delegable single-ballot voting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
