// Package docs ships the OpenAPI document served at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/positions/v1/save": {
            "post": {
                "summary": "Create or update a position on its natural identity",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/positions/v1/toggle": {
            "post": {
                "summary": "Toggle a voter's friends-only stance on a ballot item",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/positions/v1/move": {
            "post": {
                "summary": "Re-point positions after a ballot item, organization or voter merge",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/positions/v1/merge": {
            "post": {
                "summary": "Merge duplicate positions held by one voter",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/positions/v1/{visibility}/{position_id}": {
            "get": {
                "summary": "Retrieve one position by id",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/positions/v1/counts/{ballot_item_kind}/{ballot_item_id}": {
            "get": {
                "summary": "Public support and oppose tallies for a ballot item",
                "tags": ["positions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/network-score/v1/rebuild": {
            "post": {
                "summary": "Rebuild the network score cache for a voter and election",
                "tags": ["network-score"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/network-score/v1/{voter_id}/{election_id}/status": {
            "get": {
                "summary": "Cache lifecycle state for a voter and election",
                "tags": ["network-score"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/network-score/v1/{voter_id}/{election_id}/{ballot_item_kind}/{ballot_item_id}": {
            "get": {
                "summary": "Cached support and oppose rollup for one ballot item",
                "tags": ["network-score"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "BallotNet Opinion Network API",
	Description:      "Position store and network score cache for ballot opinions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
