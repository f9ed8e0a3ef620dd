// Package docs registers the storefront API description with swag.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/loginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["auth"],
                "summary": "Profile of the authenticated caller",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/orders": {
            "get": {
                "tags": ["orders"],
                "summary": "List the caller's orders",
                "parameters": [
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/orderPage"}}}
            },
            "post": {
                "tags": ["orders"],
                "summary": "Create an order",
                "parameters": [
                    {"in": "header", "name": "Idempotency-Key", "type": "string", "description": "Replays return the first order"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/createOrderRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/order"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/orders/{id}": {
            "get": {
                "tags": ["orders"],
                "summary": "Get an order",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order"}}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/orders/{id}/request": {
            "post": {
                "tags": ["orders"],
                "summary": "Submit a cancellation or return request",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/customerRequestBody"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order"}}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/payments/create-order": {
            "post": {
                "tags": ["payments"],
                "summary": "Create a gateway payment order",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/orderIdRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/paymentIntent"}}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "500": {"description": "Gateway or configuration error"}}
            }
        },
        "/payments/verify": {
            "post": {
                "tags": ["payments"],
                "summary": "Verify a completed payment",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/verifyPaymentRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/verifyResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/verifyResponse"}}}
            }
        },
        "/payments/failure": {
            "post": {
                "tags": ["payments"],
                "summary": "Record a failed payment attempt",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/paymentFailureRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order"}}, "409": {"description": "Conflict"}}
            }
        },
        "/admin/orders": {
            "get": {
                "tags": ["admin"],
                "summary": "List orders",
                "parameters": [
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "paymentStatus", "type": "string"},
                    {"in": "query", "name": "userId", "type": "string"},
                    {"in": "query", "name": "hasRequest", "type": "boolean"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/orderPage"}}}
            }
        },
        "/admin/orders/{id}": {
            "patch": {
                "tags": ["admin"],
                "summary": "Update fulfillment status",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/statusUpdateRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order"}}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/orders/{id}/request": {
            "post": {
                "tags": ["admin"],
                "summary": "Approve or reject a customer request",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/resolveRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order"}}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/orders/{id}/audit": {
            "get": {
                "tags": ["admin"],
                "summary": "Audit trail of an order",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "message": {"type": "string"}}
        },
        "loginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "orderItem": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "name": {"type": "string"},
                "image": {"type": "string"},
                "price": {"type": "number"},
                "quantity": {"type": "integer"}
            }
        },
        "shippingAddress": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "line1": {"type": "string"},
                "line2": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "postalCode": {"type": "string"},
                "country": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "createOrderRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/orderItem"}},
                "shippingAddress": {"$ref": "#/definitions/shippingAddress"},
                "totalAmount": {"type": "number"}
            }
        },
        "order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/orderItem"}},
                "shippingAddress": {"$ref": "#/definitions/shippingAddress"},
                "totalAmount": {"type": "number"},
                "currency": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "processing", "shipped", "delivered", "cancelled"]},
                "paymentStatus": {"type": "string", "enum": ["pending", "completed", "failed"]},
                "razorpayOrderId": {"type": "string"},
                "razorpayPaymentId": {"type": "string"},
                "paymentFailureReason": {"type": "string"},
                "customerRequest": {"$ref": "#/definitions/customerRequest"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "customerRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["cancellation", "return"]},
                "reason": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
                "adminComment": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "resolvedAt": {"type": "string", "format": "date-time"}
            }
        },
        "orderPage": {
            "type": "object",
            "properties": {
                "orders": {"type": "array", "items": {"$ref": "#/definitions/order"}},
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "skip": {"type": "integer"}
            }
        },
        "orderIdRequest": {
            "type": "object",
            "properties": {"orderId": {"type": "string"}}
        },
        "paymentIntent": {
            "type": "object",
            "properties": {
                "orderId": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "receipt": {"type": "string"},
                "keyId": {"type": "string"}
            }
        },
        "verifyPaymentRequest": {
            "type": "object",
            "properties": {
                "orderId": {"type": "string"},
                "razorpayPaymentId": {"type": "string"},
                "razorpayOrderId": {"type": "string"},
                "razorpaySignature": {"type": "string"}
            }
        },
        "verifyResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "error": {"type": "string"}}
        },
        "paymentFailureRequest": {
            "type": "object",
            "properties": {"orderId": {"type": "string"}, "reason": {"type": "string"}}
        },
        "customerRequestBody": {
            "type": "object",
            "properties": {"requestType": {"type": "string", "enum": ["cancellation", "return"]}, "reason": {"type": "string"}}
        },
        "statusUpdateRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["processing", "shipped", "delivered", "cancelled"]}, "comment": {"type": "string"}}
        },
        "resolveRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected"]},
                "adminComment": {"type": "string"},
                "updateOrderStatus": {"type": "string", "enum": ["processing", "shipped", "delivered", "cancelled"]}
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
	Title:            "Jewelshop storefront API",
	Description:      "Order lifecycle and payment reconciliation for the storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
