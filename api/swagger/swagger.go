package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Coursework Ledger API",
        "description": "Assignment, submission, grading and reward settlement ledger",
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
        {"name": "Authentication", "description": "Access token minting"},
        {"name": "Assignments", "description": "Assignment catalog"},
        {"name": "Submissions", "description": "Submission and grading"},
        {"name": "Claims", "description": "Reward settlement"},
        {"name": "Treasury", "description": "Reward float management"},
        {"name": "Roles", "description": "Capability registry"},
        {"name": "Settings", "description": "Global ledger parameters"},
        {"name": "Token", "description": "Token ledger"},
        {"name": "Events", "description": "Ledger event feed"},
        {"name": "Exports", "description": "Submission ledger exports"}
    ],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Mint an access token for a participant address",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments",
                "parameters": [
                    {"name": "instructor", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Publish a new assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Missing instructor capability", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get assignment by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/deactivate": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Deactivate an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/assignments/{id}/submission-count": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get the number of submissions recorded for an assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit work for an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Closed, full or duplicate", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/submissions/{student}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get a submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "student", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/submissions/{student}/grade": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Record a grade for a submission",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "student", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already graded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/submissions/{student}/eligibility": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Report reward eligibility for a submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "student", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{address}/submissions": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List assignment ids a student has submitted to",
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{address}/balance": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get a student's accrued reward balance",
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims": {
            "post": {
                "tags": ["Claims"],
                "summary": "Claim the reward for a passed submission",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClaimRequest"}}
                ],
                "responses": {
                    "200": {"description": "Settled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not claimable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Token transfer failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims/batch": {
            "post": {
                "tags": ["Claims"],
                "summary": "Claim rewards across several assignments in one settlement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClaimBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Settled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Nothing claimable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/treasury/deposit": {
            "post": {
                "tags": ["Treasury"],
                "summary": "Move tokens from the caller into the treasury float",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TreasuryRequest"}}
                ],
                "responses": {
                    "204": {"description": "Deposited"}
                }
            }
        },
        "/treasury/withdraw": {
            "post": {
                "tags": ["Treasury"],
                "summary": "Drain tokens from the treasury back to the owner",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TreasuryRequest"}}
                ],
                "responses": {
                    "204": {"description": "Withdrawn"}
                }
            }
        },
        "/roles/grant": {
            "post": {
                "tags": ["Roles"],
                "summary": "Grant a capability to an address",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleRequest"}}
                ],
                "responses": {
                    "204": {"description": "Granted"}
                }
            }
        },
        "/roles/revoke": {
            "post": {
                "tags": ["Roles"],
                "summary": "Revoke a capability from an address",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleRequest"}}
                ],
                "responses": {
                    "204": {"description": "Revoked"}
                }
            }
        },
        "/roles/transfer-ownership": {
            "post": {
                "tags": ["Roles"],
                "summary": "Transfer the owner capability to another address",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferOwnershipRequest"}}
                ],
                "responses": {
                    "204": {"description": "Transferred"}
                }
            }
        },
        "/roles/{capability}": {
            "get": {
                "tags": ["Roles"],
                "summary": "List addresses holding a capability",
                "parameters": [
                    {"name": "capability", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roles/{capability}/{address}": {
            "get": {
                "tags": ["Roles"],
                "summary": "Check whether an address holds a capability",
                "parameters": [
                    {"name": "capability", "in": "path", "required": true, "type": "string"},
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get the current ledger settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings/min-passing-grade": {
            "put": {
                "tags": ["Settings"],
                "summary": "Update the minimum passing grade",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MinGradeRequest"}}
                ],
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/settings/pause": {
            "post": {
                "tags": ["Settings"],
                "summary": "Pause all ledger mutations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Paused"}
                }
            }
        },
        "/settings/unpause": {
            "post": {
                "tags": ["Settings"],
                "summary": "Resume ledger mutations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Resumed"}
                }
            }
        },
        "/token/balances/{address}": {
            "get": {
                "tags": ["Token"],
                "summary": "Get the token balance of an address",
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/token/supply": {
            "get": {
                "tags": ["Token"],
                "summary": "Get the total token supply",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/token/mint": {
            "post": {
                "tags": ["Token"],
                "summary": "Mint new tokens onto the treasury account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SupplyRequest"}}
                ],
                "responses": {
                    "204": {"description": "Minted"}
                }
            }
        },
        "/token/burn": {
            "post": {
                "tags": ["Token"],
                "summary": "Burn tokens held by the treasury account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SupplyRequest"}}
                ],
                "responses": {
                    "204": {"description": "Burned"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List ledger events, newest first",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "assignmentId", "in": "query", "type": "integer"},
                    {"name": "student", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a submission ledger export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TokenRequest": {
            "type": "object",
            "required": ["address", "api_key"],
            "properties": {
                "address": {"type": "string"},
                "api_key": {"type": "string"}
            }
        },
        "CreateAssignmentRequest": {
            "type": "object",
            "required": ["title", "content_ref", "deadline", "capacity", "kind"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "content_ref": {"type": "string"},
                "deadline": {"type": "string", "format": "date-time"},
                "reward_amount": {"type": "integer"},
                "capacity": {"type": "integer"},
                "kind": {"type": "string", "enum": ["DOCUMENT", "CODE", "QUIZ", "PRESENTATION"]}
            }
        },
        "SubmitRequest": {
            "type": "object",
            "required": ["content_ref"],
            "properties": {
                "content_ref": {"type": "string"}
            }
        },
        "GradeRequest": {
            "type": "object",
            "required": ["grade"],
            "properties": {
                "grade": {"type": "integer", "minimum": 0, "maximum": 100},
                "feedback_ref": {"type": "string"}
            }
        },
        "ClaimRequest": {
            "type": "object",
            "required": ["assignment_id"],
            "properties": {
                "assignment_id": {"type": "integer"}
            }
        },
        "ClaimBatchRequest": {
            "type": "object",
            "required": ["assignment_ids"],
            "properties": {
                "assignment_ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "TreasuryRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {
                "amount": {"type": "integer"}
            }
        },
        "RoleRequest": {
            "type": "object",
            "required": ["capability", "address"],
            "properties": {
                "capability": {"type": "string", "enum": ["instructor", "oracle"]},
                "address": {"type": "string"}
            }
        },
        "TransferOwnershipRequest": {
            "type": "object",
            "required": ["new_owner"],
            "properties": {
                "new_owner": {"type": "string"}
            }
        },
        "MinGradeRequest": {
            "type": "object",
            "required": ["min_passing_grade"],
            "properties": {
                "min_passing_grade": {"type": "integer", "minimum": 0, "maximum": 100}
            }
        },
        "SupplyRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {
                "amount": {"type": "integer"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "assignment_id": {"type": "integer"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
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
