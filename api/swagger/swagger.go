package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Practicum API",
        "description": "Operations surface of the practicum project assignment service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Ops", "description": "Liveness, readiness and metrics"},
        {"name": "Assignment Runs", "description": "Run summaries and manual runs"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness check",
                "description": "Pings the database before reporting ready",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus text exposition"},
                    "503": {"description": "Metrics disabled"}
                }
            }
        },
        "/api/v1/runs/{practiceID}/latest": {
            "get": {
                "tags": ["Assignment Runs"],
                "summary": "Latest assignment run of a practice",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "practiceID", "in": "path", "required": true, "type": "string", "description": "Practice ID"}
                ],
                "responses": {
                    "200": {
                        "description": "Run summary",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/Envelope"},
                                {"properties": {"data": {"$ref": "#/definitions/AssignmentRun"}}}
                            ]
                        }
                    },
                    "404": {"description": "No run recorded", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/runs/{practiceID}": {
            "post": {
                "tags": ["Assignment Runs"],
                "summary": "Queue an assignment run",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "practiceID", "in": "path", "required": true, "type": "string", "description": "Practice ID"}
                ],
                "responses": {
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Run already in progress", "schema": {"$ref": "#/definitions/Envelope"}},
                    "503": {"description": "Scheduler disabled"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "Assignment": {
            "type": "object",
            "properties": {
                "registered_student_id": {"type": "string"},
                "project_id": {"type": "string"},
                "phase": {"type": "string", "enum": ["confirmed", "preference"]},
                "priority": {"type": "integer"},
                "off_profile": {"type": "boolean"}
            }
        },
        "AssignmentRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "practice_id": {"type": "string"},
                "policy": {"type": "string", "enum": ["exempt", "consume"]},
                "seed": {"type": "integer", "format": "int64"},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"},
                "initial_capacity": {"type": "object", "additionalProperties": {"type": "integer"}},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}},
                "skipped_confirmed": {"type": "integer"},
                "unassigned": {"type": "array", "items": {"type": "string"}},
                "open_slots": {"type": "integer"}
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
