package ecommerce

// AmazonOrdersResponse is the getOrders response of the Selling Partner API.
type AmazonOrdersResponse struct {
	Payload struct {
		Orders    []AmazonOrder `json:"Orders"`
		NextToken string        `json:"NextToken"`
	} `json:"payload"`
}

// AmazonOrder is one order header. Lines are fetched separately.
type AmazonOrder struct {
	AmazonOrderID   string         `json:"AmazonOrderId"`
	OrderStatus     string         `json:"OrderStatus"`
	PurchaseDate    string         `json:"PurchaseDate"`
	OrderTotal      *AmazonMoney   `json:"OrderTotal,omitempty"`
	ShippingAddress *AmazonAddress `json:"ShippingAddress,omitempty"`
	BuyerInfo       *struct {
		BuyerName string `json:"BuyerName"`
	} `json:"BuyerInfo,omitempty"`
	ShipServiceLevel string `json:"ShipServiceLevel"`
}

// AmazonMoney is an amount with its currency.
type AmazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

// AmazonAddress is a shipping address.
type AmazonAddress struct {
	Name          string `json:"Name"`
	AddressLine1  string `json:"AddressLine1"`
	AddressLine2  string `json:"AddressLine2"`
	City          string `json:"City"`
	StateOrRegion string `json:"StateOrRegion"`
	PostalCode    string `json:"PostalCode"`
	Phone         string `json:"Phone"`
}

// AmazonOrderItemsResponse is the getOrderItems response.
type AmazonOrderItemsResponse struct {
	Payload struct {
		OrderItems []AmazonOrderItem `json:"OrderItems"`
		NextToken  string            `json:"NextToken"`
	} `json:"payload"`
}

// AmazonOrderItem is one order line.
type AmazonOrderItem struct {
	OrderItemID     string       `json:"OrderItemId"`
	SellerSKU       string       `json:"SellerSKU"`
	ASIN            string       `json:"ASIN"`
	QuantityOrdered int          `json:"QuantityOrdered"`
	ItemPrice       *AmazonMoney `json:"ItemPrice,omitempty"`
}

// AmazonListingPatch is a listings patch request.
type AmazonListingPatch struct {
	ProductType string                 `json:"productType"`
	Patches     []AmazonPatchOperation `json:"patches"`
}

// AmazonPatchOperation is one JSON-patch style operation.
type AmazonPatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value []any  `json:"value"`
}

// AmazonListingResponse is the verdict of a listings patch.
type AmazonListingResponse struct {
	SKU    string `json:"sku"`
	Status string `json:"status"`
	Issues []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"issues"`
}
