package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CampusPulse Attendance API",
        "description": "Attendance strategy classification, checkpoint scheduling, dual-layer mark verification and completion scoring.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Strategy", "description": "Event classification and strategy decisions"},
        {"name": "Checkpoints", "description": "Checkpoint schedule management"},
        {"name": "Verification", "description": "Token issuance and the scan gateway"},
        {"name": "Participation", "description": "Mark recording and rosters"},
        {"name": "Completion", "description": "Weighted completion scoring"}
    ],
    "paths": {
        "/events/{id}/strategy/decide": {
            "post": {
                "tags": ["Strategy"],
                "summary": "Classify an event and synthesize its checkpoint schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found"}
                }
            }
        },
        "/events/{id}/strategy": {
            "get": {
                "tags": ["Strategy"],
                "summary": "Get the stored strategy decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/strategy/override": {
            "put": {
                "tags": ["Strategy"],
                "summary": "Override the classified strategy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"strategy": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/events/{id}/checkpoints": {
            "get": {
                "tags": ["Checkpoints"],
                "summary": "List an event's checkpoints",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Checkpoints"],
                "summary": "Replace an event's checkpoint schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule finalized or checkpoints overlap"}
                }
            }
        },
        "/checkpoints/{id}/qr-token": {
            "post": {
                "tags": ["Verification"],
                "summary": "Issue the shared QR token for a checkpoint",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"type": "object", "properties": {"max_uses": {"type": "integer"}}}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/codes": {
            "post": {
                "tags": ["Verification"],
                "summary": "Issue a fresh rotating access code",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/codes/validate": {
            "post": {
                "tags": ["Verification"],
                "summary": "Validate a rotating access code",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"code": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Code not recognized"}
                }
            }
        },
        "/scan": {
            "post": {
                "tags": ["Verification"],
                "summary": "Record a physical mark via scanned QR token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not registered"},
                    "409": {"description": "Token exhausted, device mismatch or suspected proxy"},
                    "410": {"description": "Token expired"}
                }
            }
        },
        "/events/{id}/audit": {
            "get": {
                "tags": ["Verification"],
                "summary": "List the verification audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/self-report": {
            "post": {
                "tags": ["Participation"],
                "summary": "Record the caller's virtual mark for a checkpoint",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"checkpoint_id": {"type": "string"}}}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not registered"}
                }
            }
        },
        "/events/{id}/marks/bulk": {
            "post": {
                "tags": ["Participation"],
                "summary": "Bulk-record marks for an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/participants/{participantId}/marks": {
            "get": {
                "tags": ["Participation"],
                "summary": "List a participant's marks for an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "participantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkpoints/{id}/marks": {
            "get": {
                "tags": ["Participation"],
                "summary": "List a checkpoint's marks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkpoints/{id}/marks/export": {
            "get": {
                "tags": ["Participation"],
                "summary": "Export a checkpoint's marks as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/checkpoints/{id}/sheet": {
            "get": {
                "tags": ["Participation"],
                "summary": "Download the printable sign-in sheet",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/events/{id}/completion": {
            "get": {
                "tags": ["Completion"],
                "summary": "Compute completion across an event's registrants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/participants/{participantId}/completion": {
            "get": {
                "tags": ["Completion"],
                "summary": "Compute a participant's completion",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "participantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/completion/cache": {
            "delete": {
                "tags": ["Completion"],
                "summary": "Drop cached completion results",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "ScanRequest": {
            "type": "object",
            "required": ["qr_payload", "participant_id", "device_fingerprint"],
            "properties": {
                "qr_payload": {"type": "string"},
                "participant_id": {"type": "string"},
                "device_fingerprint": {"type": "string"},
                "override": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
