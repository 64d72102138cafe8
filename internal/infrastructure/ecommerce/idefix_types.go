package ecommerce

// IdefixOrdersResponse is one page of the Idefix order listing.
type IdefixOrdersResponse struct {
	Items      []IdefixOrder `json:"items"`
	TotalCount int           `json:"totalCount"`
	TotalPages int           `json:"totalPages"`
}

// IdefixOrder is one shipment of an Idefix order.
type IdefixOrder struct {
	ID                  FlexibleString    `json:"id"`
	OrderNumber         FlexibleString    `json:"orderNumber"`
	Status              string            `json:"status"`
	OrderDate           string            `json:"orderDate"`
	TotalPrice          FlexibleString    `json:"totalPrice"`
	Currency            string            `json:"currency"`
	CargoTrackingNumber FlexibleString    `json:"cargoTrackingNumber"`
	CargoCompany        string            `json:"cargoCompany"`
	ShippingAddress     IdefixAddress     `json:"shippingAddress"`
	Items               []IdefixOrderLine `json:"items"`
}

// IdefixAddress is a delivery address.
type IdefixAddress struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	District string `json:"district"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
}

// IdefixOrderLine is one product line.
type IdefixOrderLine struct {
	ID       FlexibleString `json:"id"`
	Barcode  string         `json:"barcode"`
	Quantity int            `json:"quantity"`
	Price    FlexibleString `json:"price"`
	Size     string         `json:"size"`
	Color    string         `json:"color"`
}

// IdefixInventoryRequest uploads stock levels.
type IdefixInventoryRequest struct {
	Items []IdefixInventoryItem `json:"items"`
}

// IdefixInventoryItem is the stock level of one barcode.
type IdefixInventoryItem struct {
	Barcode           string `json:"barcode"`
	InventoryQuantity int    `json:"inventoryQuantity"`
}

// IdefixInventoryResponse carries one verdict per uploaded barcode.
type IdefixInventoryResponse struct {
	Items []struct {
		Barcode string `json:"barcode"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"items"`
}
