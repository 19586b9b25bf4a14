// ABOUTME: Maps typed shop errors to the notices users see
// ABOUTME: Wording depends on the command that failed, so the same kind reads naturally everywhere

package bot

import (
	"github.com/2389/shopkeeper/internal/shop"
)

var fieldReplies = map[shop.Field]string{
	shop.FieldName:  "Error: The item name must have a valid name! (Use quotes to include spaces)",
	shop.FieldPrice: "Error: The item price must have a valid price! (eg. 00.00)",
	shop.FieldQty:   "Error: The item quantity must have a valid amount! (eg. 1)",
	shop.FieldType:  "Error: The item type must have a valid type! (eg. digital / service)",
	shop.FieldDesc:  "Error: The item description must be less than 512 characters long!",
	shop.FieldImage: "Error: The item image must be less than 64 characters long!",
}

var invalidResponseReplies = map[string]string{
	"shop":             "Error: Must provide a valid status for your shop! (eg. open / close)",
	"set_affiliate":    "Error: Must provide a valid status for setting affiliate status! (eg. true / false)",
	"set_admin_status": "Error: please supply either TRUE or FALSE for new admin status",
	"audit":            "Error: Must provide a positive number of entries to show! (eg. 20)",
}

// userMessage renders err, which must carry a *shop.Error, for the sender
// of command.
func userMessage(command string, err error) string {
	e := shop.As(err)
	if e == nil {
		return internalErrorReply
	}

	switch e.Kind {
	case shop.KindPermissionDenied:
		if command == "set_admin_status" {
			return "Permission Error encountered. You do not have permission to edit the database"
		}
		return "Error: You must be an admin to perform this command!"

	case shop.KindNotFound:
		switch e.Entity {
		case shop.EntityItem:
			return "Error: The item id was not found! Be sure to copy the correct id of your shop item message."
		case shop.EntityUser:
			if command == "set_admin_status" {
				return "Error: you are attempting to modify a user that does not exist."
			}
			return "Error: Must provide a valid user id. This user doesn't exist!"
		case shop.EntityShop:
			return "Error: You do not have a shop! Ask an admin to make you an affiliate."
		}

	case shop.KindAlreadyExists:
		switch e.Entity {
		case shop.EntityAffiliate, shop.EntityShop, shop.EntityControlPanel:
			return "Error: This user is already an affiliate!"
		case shop.EntityItem:
			return "Error: That item is already listed!"
		}

	case shop.KindValidation:
		if msg, ok := fieldReplies[e.Field]; ok {
			return msg
		}

	case shop.KindInvalidResponse:
		if msg, ok := invalidResponseReplies[command]; ok {
			return msg
		}

	case shop.KindNoOpStatusChange:
		return "Error: The " + e.Message + " for business!"

	case shop.KindNotInControlPanel:
		return "Error: Shop commands only work in your own control panel."
	}

	return "Error: " + e.Message
}
