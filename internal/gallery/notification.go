package gallery

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Notification is a transient message shown to the user once.
type Notification struct {
	Status      Status
	Title       string
	Description string
}

type Notifier interface {
	Notify(Notification)
}

// Notifications collects everything emitted while handling one interaction.
type Notifications []Notification

func (n *Notifications) Notify(notification Notification) {
	*n = append(*n, notification)
}

var (
	savedNotification = Notification{
		Status:      StatusSuccess,
		Title:       "Yeah",
		Description: "Image saved",
	}
	failedNotification = Notification{
		Status:      StatusError,
		Description: "Something wrong",
	}
	missingURLNotification = Notification{
		Status:      StatusError,
		Description: "Image URL does not exist",
	}
)
