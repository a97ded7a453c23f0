package card

import "math/rand"

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// Deck is an ordered pile of cards, consumed from the head.
type Deck []Card

// NewShuffledDeck builds one card for every suit×rank combination and
// applies a Fisher-Yates permutation. It always succeeds.
func NewShuffledDeck() Deck {
	deck := make(Deck, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, New(s, r))
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// Draw removes up to n cards from the head of the deck and returns them.
func (d *Deck) Draw(n int) []Card {
	if n > len(*d) {
		n = len(*d)
	}
	drawn := make([]Card, n)
	copy(drawn, (*d)[:n])
	*d = (*d)[n:]
	return drawn
}
