// ABOUTME: Item listing management: validation of raw command input, add, update, delete, list
// ABOUTME: Uses go-playground/validator for field rules and shopspring/decimal for prices

package shop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/2389/shopkeeper/internal/store"
)

// NoImage is the image argument that means an item has no image.
const NoImage = "none"

// Prices stay below maxPrice and carry at most maxPriceScale decimals.
const maxPriceScale = 8

var maxPrice = decimal.New(1, 12)

// ItemFields is an item as typed by a user, before validation.
type ItemFields struct {
	Name        string
	Price       string
	Quantity    string
	Type        string
	Image       string
	Description string
}

// ItemDraft is a validated item that has not been stored yet.
type ItemDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    store.Quantity
	Type        store.ItemType
	Image       *string
}

// itemInput carries normalized raw values through the validator.
// Field order is the order errors are reported in.
type itemInput struct {
	Name        string `field:"name" validate:"required"`
	Price       string `field:"price" validate:"required,price"`
	Quantity    string `field:"qty" validate:"required,qty"`
	Type        string `field:"type" validate:"required,itemtype"`
	Description string `field:"desc" validate:"max=511"`
	Image       string `field:"image" validate:"max=63"`
}

var goFieldByField = map[Field]string{
	FieldName:  "Name",
	FieldPrice: "Price",
	FieldQty:   "Quantity",
	FieldType:  "Type",
	FieldDesc:  "Description",
	FieldImage: "Image",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if tag := f.Tag.Get("field"); tag != "" {
			return tag
		}
		return f.Name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, err := parsePrice(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("itemtype", func(fl validator.FieldLevel) bool {
		_, err := store.ParseItemType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("qty", func(fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(fl.Field().String())
		return err == nil
	})
	return v
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %s", raw)
	}
	// Exponent bounds come first; comparing a huge exponent rescales to a huge integer.
	if price.Exponent() > 12 || price.Exponent() < -maxPriceScale {
		return decimal.Decimal{}, fmt.Errorf("price %s out of range", raw)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, fmt.Errorf("price %s out of range", raw)
	}
	return price, nil
}

func normalizeInput(f ItemFields) itemInput {
	return itemInput{
		Name:        strings.TrimSpace(f.Name),
		Price:       strings.TrimPrefix(strings.TrimSpace(f.Price), "$"),
		Quantity:    strings.TrimSpace(f.Quantity),
		Type:        strings.ToUpper(strings.TrimSpace(f.Type)),
		Description: f.Description,
		Image:       strings.TrimSpace(f.Image),
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be less than %s characters", plusOne(fe.Param()))
	case "price":
		return "must be a non-negative number below 1,000,000,000,000 (eg. 00.00)"
	case "qty":
		return "must be a whole number (eg. 1)"
	case "itemtype":
		return "must be digital or service"
	}
	return "is invalid"
}

func plusOne(param string) string {
	n, err := strconv.Atoi(param)
	if err != nil {
		return param
	}
	return strconv.Itoa(n + 1)
}

// firstValidationError converts the first failing rule into a typed error.
func firstValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return validationError(Field(fe.Field()), validationMessage(fe), err)
	}
	return fmt.Errorf("validating item: %w", err)
}

func (in itemInput) draft() ItemDraft {
	price, _ := parsePrice(in.Price)
	qty, _ := strconv.Atoi(in.Quantity)
	typ, _ := store.ParseItemType(in.Type)
	d := ItemDraft{
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		Quantity:    parseQuantity(qty),
		Type:        typ,
		Image:       parseImage(in.Image),
	}
	return d
}

func parseQuantity(n int) store.Quantity {
	if n < 0 {
		return store.UnlimitedQuantity()
	}
	return store.Limited(n)
}

func parseImage(raw string) *string {
	if raw == "" || strings.EqualFold(raw, NoImage) {
		return nil
	}
	return &raw
}

// ValidateItem checks raw item input without writing anything.
// The first failing field is reported as a Validation error.
func ValidateItem(f ItemFields) (ItemDraft, error) {
	in := normalizeInput(f)
	if err := validate.Struct(in); err != nil {
		return ItemDraft{}, firstValidationError(err)
	}
	return in.draft(), nil
}

// validateField checks one raw value against the rules for field.
func validateField(field Field, raw string) error {
	goName, ok := goFieldByField[field]
	if !ok {
		return fmt.Errorf("unknown item field %q", field)
	}
	sf, _ := reflect.TypeOf(itemInput{}).FieldByName(goName)
	if err := validate.Var(raw, sf.Tag.Get("validate")); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return validationError(field, validationMessage(errs[0]), err)
		}
		return fmt.Errorf("validating %s: %w", field, err)
	}
	return nil
}

// AddItem validates raw input and stores it as itemID in shopID.
func (s *Service) AddItem(ctx context.Context, shopID, itemID string, f ItemFields) (*store.Item, error) {
	d, err := ValidateItem(f)
	if err != nil {
		return nil, err
	}

	item := &store.Item{
		ID:          itemID,
		ShopID:      shopID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Quantity:    d.Quantity,
		Type:        d.Type,
		Image:       d.Image,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, mapNotFound(err, EntityShop, shopID)
		case errors.Is(err, store.ErrAlreadyExists):
			e := alreadyExists(EntityItem, itemID)
			e.cause = err
			return nil, e
		}
		return nil, fmt.Errorf("adding item %s: %w", itemID, err)
	}

	s.logger.Info("added item", "shop", shopID, "item", itemID, "name", item.Name)
	return item, nil
}

// UpdateItemField changes one attribute of an item after validating it
// with the same rules AddItem uses. Returns the updated item.
func (s *Service) UpdateItemField(ctx context.Context, itemID, shopID string, field Field, value string) (*store.Item, error) {
	item, err := s.GetItem(ctx, itemID, shopID)
	if err != nil {
		return nil, err
	}

	in := normalizeInput(ItemFields{
		Name:        value,
		Price:       value,
		Quantity:    value,
		Type:        value,
		Image:       value,
		Description: value,
	})

	switch field {
	case FieldName:
		if err := validateField(field, in.Name); err != nil {
			return nil, err
		}
		item.Name = in.Name
	case FieldDesc:
		if err := validateField(field, in.Description); err != nil {
			return nil, err
		}
		item.Description = in.Description
	case FieldPrice:
		if err := validateField(field, in.Price); err != nil {
			return nil, err
		}
		item.Price, _ = parsePrice(in.Price)
	case FieldQty:
		if err := validateField(field, in.Quantity); err != nil {
			return nil, err
		}
		n, _ := strconv.Atoi(in.Quantity)
		item.Quantity = parseQuantity(n)
	case FieldType:
		if err := validateField(field, in.Type); err != nil {
			return nil, err
		}
		item.Type, _ = store.ParseItemType(in.Type)
	case FieldImage:
		if err := validateField(field, in.Image); err != nil {
			return nil, err
		}
		item.Image = parseImage(in.Image)
	default:
		return nil, fmt.Errorf("unknown item field %q", field)
	}

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, mapNotFound(err, EntityItem, itemID)
	}

	s.logger.Info("updated item", "shop", shopID, "item", itemID, "field", field)
	return item, nil
}

// DeleteItem removes an item and returns what was deleted.
func (s *Service) DeleteItem(ctx context.Context, itemID, shopID string) (*store.Item, error) {
	item, err := s.GetItem(ctx, itemID, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteItem(ctx, itemID, shopID); err != nil {
		return nil, mapNotFound(err, EntityItem, itemID)
	}

	s.logger.Info("deleted item", "shop", shopID, "item", itemID)
	return item, nil
}

// ListItems returns the items in a shop, or ShopNotFound.
func (s *Service) ListItems(ctx context.Context, shopID string) ([]*store.Item, error) {
	if _, err := s.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing items for %s: %w", shopID, err)
	}
	return items, nil
}
