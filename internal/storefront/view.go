package storefront

import (
	"strconv"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/price"
)

const cardTitleLimit = 40

// Card is one rendered product in the grid.
type Card struct {
	ProductID string
	Image     string
	Category  string
	Title     string
	FullTitle string
	Price     string
}

// Detail is the content of the open detail modal.
type Detail struct {
	ProductID   string
	Image       string
	Category    string
	Title       string
	Price       string
	Description string
}

// View is a snapshot of everything the page shows.
type View struct {
	SessionID string
	State     FetchState
	Loading   bool
	Failed    bool
	Cards     []Card
	// Modal is nil while the detail modal is hidden.
	Modal        *Detail
	ScrollLocked bool
	CartCount    int
	Toasts       []Toast
}

// View renders the current state of the page.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	v := View{
		SessionID: s.id,
		State:     s.stateLocked(),
		Loading:   s.loading,
		Failed:    s.failed,
		Cards:     renderGrid(s.products, s.prices),
		CartCount: s.cart.Len(),
		Toasts:    s.toasts.Active(),
	}
	if s.modal.open {
		d := renderDetail(s.modal.product, s.prices)
		v.Modal = &d
		v.ScrollLocked = true
	}
	return v
}

// renderGrid builds every card from scratch, in collection order.
func renderGrid(products product.Collection, prices *price.Converter) []Card {
	all := products.All()
	cards := make([]Card, len(all))
	for i, p := range all {
		cards[i] = Card{
			ProductID: formatID(p.ID),
			Image:     p.Image,
			Category:  p.Category,
			Title:     truncate(p.Title, cardTitleLimit),
			FullTitle: p.Title,
			Price:     prices.Format(p.Price),
		}
	}
	return cards
}

func renderDetail(p product.Product, prices *price.Converter) Detail {
	return Detail{
		ProductID:   formatID(p.ID),
		Image:       p.Image,
		Category:    p.Category,
		Title:       p.Title,
		Price:       prices.Format(p.Price),
		Description: p.Description,
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
