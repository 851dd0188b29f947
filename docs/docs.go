// Package docs registers the swagger document for the bridge API.
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
        "/agent/status": {
            "get": {"tags": ["Agent"], "summary": "Agent status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/agent/connect": {
            "post": {"tags": ["Agent"], "summary": "Connect to agent", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Agent unreachable"}, "504": {"description": "Agent did not answer in time"}}}
        },
        "/agent/disconnect": {
            "post": {"tags": ["Agent"], "summary": "Disconnect from agent", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/devices": {
            "get": {"tags": ["Devices"], "summary": "List discovered printers", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Devices"], "summary": "Clear printers", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/devices/discover": {
            "post": {
                "tags": ["Devices"], "summary": "Discover printers", "produces": ["application/json"],
                "parameters": [{"type": "boolean", "description": "Hide devices of unknown type", "name": "ignore_unknown", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid query"}, "503": {"description": "Agent unreachable"}}
            }
        },
        "/devices/connected": {
            "get": {"tags": ["Devices"], "summary": "List connected printers", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/devices/connect": {
            "post": {"tags": ["Devices"], "summary": "Connect printer", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}, "502": {"description": "Agent rejected the request"}}}
        },
        "/devices/disconnect": {
            "post": {"tags": ["Devices"], "summary": "Disconnect printer", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}, "502": {"description": "Agent rejected the request"}}}
        },
        "/receipts/preview": {
            "post": {"tags": ["Receipts"], "summary": "Preview receipt", "consumes": ["application/json"], "produces": ["text/html"], "responses": {"200": {"description": "HTML preview"}, "400": {"description": "Invalid receipt"}}}
        },
        "/receipts/escpos": {
            "post": {"tags": ["Receipts"], "summary": "Encode receipt", "consumes": ["application/json"], "produces": ["application/octet-stream"], "responses": {"200": {"description": "ESC/POS bytes"}, "400": {"description": "Invalid receipt"}}}
        },
        "/receipts/print": {
            "post": {"tags": ["Receipts"], "summary": "Print receipt", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid receipt"}, "409": {"description": "No connected printer"}, "503": {"description": "Agent not connected"}}}
        },
        "/preferences": {
            "get": {"tags": ["Preferences"], "summary": "Get preferences", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Preferences"], "summary": "Update preferences", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}}}
        },
        "/jobs": {
            "get": {
                "tags": ["Jobs"], "summary": "List print jobs", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "device_id", "in": "query"},
                    {"enum": ["SUCCESS", "FAILED"], "type": "string", "name": "status", "in": "query"},
                    {"type": "string", "description": "RFC 3339 lower bound", "name": "since", "in": "query"},
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid query"}}
            }
        },
        "/jobs/{job_id}": {
            "get": {
                "tags": ["Jobs"], "summary": "Get print job", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "job_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid job ID"}, "404": {"description": "Job not found"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Print Bridge API",
	Description:      "Receipt rendering and printing through the local print agent.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
