package ecommerce

// WooOrder is one order of the WooCommerce REST API.
type WooOrder struct {
	ID             int64          `json:"id"`
	Number         string         `json:"number"`
	Status         string         `json:"status"`
	DateCreatedGMT string         `json:"date_created_gmt"`
	Total          string         `json:"total"`
	Currency       string         `json:"currency"`
	Billing        WooAddress     `json:"billing"`
	Shipping       WooAddress     `json:"shipping"`
	LineItems      []WooLineItem  `json:"line_items"`
	MetaData       []WooMetaEntry `json:"meta_data"`
	ShippingLines  []WooShipping  `json:"shipping_lines"`
}

// WooAddress is a billing or shipping address.
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Phone     string `json:"phone"`
}

// WooLineItem is one product line.
type WooLineItem struct {
	ID        int64          `json:"id"`
	SKU       string         `json:"sku"`
	Quantity  int            `json:"quantity"`
	Price     FlexibleString `json:"price"`
	ProductID int64          `json:"product_id"`
	MetaData  []WooMetaEntry `json:"meta_data"`
}

// WooMetaEntry is a free-form key/value pair.
type WooMetaEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// WooShipping is one shipping method line.
type WooShipping struct {
	MethodTitle string `json:"method_title"`
}

// WooProduct is the subset of a product needed to update stock.
type WooProduct struct {
	ID  int64  `json:"id"`
	SKU string `json:"sku"`
}

// WooBatchRequest updates several products.
type WooBatchRequest struct {
	Update []WooStockUpdate `json:"update"`
}

// WooStockUpdate sets the stock of one product.
type WooStockUpdate struct {
	ID            int64 `json:"id"`
	ManageStock   bool  `json:"manage_stock"`
	StockQuantity int   `json:"stock_quantity"`
}

// WooBatchResponse lists the updated products; failed entries carry an error.
type WooBatchResponse struct {
	Update []struct {
		ID    int64  `json:"id"`
		SKU   string `json:"sku"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"update"`
}
