package domain

// Role — роль актора в системе.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Actor описывает инициатора операции. Транспортный слой заполняет его
// из своей аутентификации; ядро решает только вопрос авторизации.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin сообщает, обладает ли актор административной ролью.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Operation — именованная операция жизненного цикла для политики доступа и аудита.
type Operation string

const (
	OpConfirm       Operation = "order.confirm"
	OpShip          Operation = "order.ship"
	OpCancel        Operation = "order.cancel"
	OpDeliver       Operation = "order.deliver"
	OpForceTracking Operation = "order.tracking_forced"
	OpRequestReturn Operation = "order.return_requested"
	OpRead          Operation = "order.read"
)

// Authorize — единая точка проверки прав вместо разрозненных проверок роли
// в каждом обработчике. Возвращает nil либо ошибку Forbidden.
//
// Правила:
//   - confirm, ship, deliver, force-tracking — только администратор;
//   - cancel и заявка на возврат — строго владелец заказа, админской
//     подмены нет;
//   - чтение — владелец или администратор.
func Authorize(actor Actor, op Operation, order *Order) error {
	switch op {
	case OpConfirm, OpShip, OpDeliver, OpForceTracking:
		if !actor.IsAdmin() {
			return Errorf(KindForbidden, "operation %s requires admin role", op)
		}
		return nil
	case OpCancel, OpRequestReturn:
		if order == nil || actor.ID == "" || actor.ID != order.CustomerID {
			return Errorf(KindForbidden, "operation %s requires order ownership", op)
		}
		return nil
	case OpRead:
		if actor.IsAdmin() {
			return nil
		}
		if order == nil || actor.ID == "" || actor.ID != order.CustomerID {
			return Errorf(KindForbidden, "order belongs to another customer")
		}
		return nil
	default:
		return Errorf(KindForbidden, "unknown operation %s", op)
	}
}
