package ecommerce

import "github.com/shopspring/decimal"

// TrendyolOrdersResponse is one page of the shipment package listing.
type TrendyolOrdersResponse struct {
	Page          int                     `json:"page"`
	Size          int                     `json:"size"`
	TotalPages    int                     `json:"totalPages"`
	TotalElements int                     `json:"totalElements"`
	Content       []TrendyolShipmentOrder `json:"content"`
}

// TrendyolShipmentOrder is one shipment package of an order.
type TrendyolShipmentOrder struct {
	ID                  int64               `json:"id"`
	OrderNumber         string              `json:"orderNumber"`
	OrderDate           int64               `json:"orderDate"`
	Status              string              `json:"status"`
	ShipmentPackageID   int64               `json:"shipmentPackageId"`
	CustomerFirstName   string              `json:"customerFirstName"`
	CustomerLastName    string              `json:"customerLastName"`
	ShipmentAddress     TrendyolAddress     `json:"shipmentAddress"`
	CargoTrackingNumber FlexibleString      `json:"cargoTrackingNumber"`
	CargoProviderName   string              `json:"cargoProviderName"`
	TotalPrice          decimal.Decimal     `json:"totalPrice"`
	CurrencyCode        string              `json:"currencyCode"`
	Lines               []TrendyolOrderLine `json:"lines"`
}

// TrendyolAddress is the delivery address of a package.
type TrendyolAddress struct {
	FullName    string `json:"fullName"`
	FullAddress string `json:"fullAddress"`
	Phone       string `json:"phone"`
}

// TrendyolOrderLine is one product line of a package.
type TrendyolOrderLine struct {
	ID           int64           `json:"id"`
	Barcode      string          `json:"barcode"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	ProductSize  string          `json:"productSize"`
	ProductColor string          `json:"productColor"`
	ProductCode  FlexibleString  `json:"productCode"`
}

// TrendyolInventoryRequest updates stock of several barcodes.
type TrendyolInventoryRequest struct {
	Items []TrendyolInventoryItem `json:"items"`
}

// TrendyolInventoryItem is one barcode quantity.
type TrendyolInventoryItem struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

// TrendyolBatchResponse acknowledges an inventory update.
type TrendyolBatchResponse struct {
	BatchRequestID string `json:"batchRequestId"`
}

// TrendyolBatchResult reports the outcome of a batch request.
type TrendyolBatchResult struct {
	BatchRequestID string                    `json:"batchRequestId"`
	Status         string                    `json:"status"`
	Items          []TrendyolBatchItemResult `json:"items"`
}

// TrendyolBatchItemResult is the verdict for one barcode.
type TrendyolBatchItemResult struct {
	RequestItem    TrendyolInventoryItem `json:"requestItem"`
	Status         string                `json:"status"`
	FailureReasons []string              `json:"failureReasons"`
}
