package catalog

type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Box      string   `json:"box"`
	PerBox   int      `json:"per_box"`
	Quantity int      `json:"quantity"` // available units, never negative
	Insumos  []string `json:"insumos"`
}

// ProductInput creates or edits a product. A nil Quantity leaves stock untouched on edit.
type ProductInput struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Box      string   `json:"box"`
	PerBox   int      `json:"per_box"`
	Quantity *int     `json:"quantity"`
	Insumos  []string `json:"insumos"`
}

// Insumo is a raw input material.
type Insumo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type InsumoInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type LotState string

const (
	LotFinished  LotState = "FINISHED"
	LotInProcess LotState = "IN_PROCESS"
	LotReprocess LotState = "REPROCESS"
)

const defaultLotState = LotInProcess

func (s LotState) Valid() bool {
	switch s {
	case LotFinished, LotInProcess, LotReprocess:
		return true
	}
	return false
}

// ProductLot is a stock lot of a finished or in-process product.
type ProductLot struct {
	ID       string   `json:"id"`
	Lot      string   `json:"lot"`
	Product  string   `json:"product"`
	State    LotState `json:"state"`
	Quantity int      `json:"quantity"`
}

type ProductLotInput struct {
	Lot      string   `json:"lot"`
	Product  string   `json:"product"`
	State    LotState `json:"state"`
	Quantity int      `json:"quantity"`
}

type InsumoLot struct {
	ID       string `json:"id"`
	Lot      string `json:"lot"`
	Insumo   string `json:"insumo"`
	Quantity int    `json:"quantity"`
}

type InsumoLotInput struct {
	Lot      string `json:"lot"`
	Insumo   string `json:"insumo"`
	Quantity int    `json:"quantity"`
}

type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Seller  string `json:"seller"` // owning seller's user id
}

// ClientInput has no seller: the owner is always the acting user.
type ClientInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}
