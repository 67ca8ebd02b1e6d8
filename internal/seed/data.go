package seed

import "github.com/unilost/unilost/internal/model"

// Point is a campus coordinate.
type Point struct {
	Lat, Lng float64
}

// CampusLocations are spread across the Sejong University campus
// (roughly 37.549-37.552 N, 127.074-127.078 E).
var CampusLocations = []Point{
	{37.5503, 127.0751}, // library
	{37.5508, 127.0756}, // cafeteria
	{37.5495, 127.0745}, // engineering building
	{37.5515, 127.0770}, // gymnasium
	{37.5500, 127.0752}, // library study room
	{37.5505, 127.0742}, // main entrance
	{37.5492, 127.0748}, // science building
	{37.5512, 127.0765}, // business building
	{37.5518, 127.0772}, // gymnasium locker room
	{37.5506, 127.0758}, // cafeteria, east
	{37.5498, 127.0740}, // south building
	{37.5510, 127.0760}, // north building
}

func ptr(s string) *string { return &s }

var sampleItems = []model.NewItem{
	{
		Title:        "Lost Black Wallet",
		Description:  "Black leather wallet with credit cards and student ID. Found near the library entrance.",
		Category:     "Wallet",
		Lat:          37.5503,
		Lng:          127.0751,
		Radius:       50,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Student Affairs Office, 1st Floor, Locker A-3"),
		CreatedBy:    ptr("student1"),
	},
	{
		Title:        "iPhone 14 Pro",
		Description:  "Silver iPhone 14 Pro with black case. Found in the cafeteria.",
		Category:     "Electronics",
		Lat:          37.5508,
		Lng:          127.0756,
		Radius:       30,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Security Office, Main Building"),
		CreatedBy:    ptr("student2"),
	},
	{
		Title:       "Blue Backpack",
		Description: "Nike blue backpack with laptop compartment. Found in classroom 301, Engineering Building.",
		Category:    "Bag",
		Lat:         37.5495,
		Lng:         127.0745,
		Radius:      40,
		Status:      model.ItemStatusPending,
		CreatedBy:   ptr("student3"),
	},
	{
		Title:        "Student ID Card",
		Description:  "Student ID card belonging to John Doe. Found near the gymnasium.",
		Category:     "Student ID/Card",
		Lat:          37.5515,
		Lng:          127.0770,
		Radius:       25,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Student Affairs Office, 1st Floor"),
		CreatedBy:    ptr("student4"),
	},
	{
		Title:        "AirPods Pro",
		Description:  "White AirPods Pro in charging case. Found in the library study room.",
		Category:     "Electronics",
		Lat:          37.5500,
		Lng:          127.0752,
		Radius:       20,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Library Information Desk"),
		CreatedBy:    ptr("student5"),
	},
	{
		Title:       "Red Umbrella",
		Description: "Red folding umbrella. Found near the main entrance during rainy day.",
		Category:    "Other",
		Lat:         37.5505,
		Lng:         127.0742,
		Radius:      35,
		Status:      model.ItemStatusPending,
		CreatedBy:   ptr("student6"),
	},
	{
		Title:        "MacBook Pro 13-inch",
		Description:  "Space Gray MacBook Pro 13-inch. Found in the computer lab, Science Building.",
		Category:     "Laptop",
		Lat:          37.5492,
		Lng:          127.0748,
		Radius:       45,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("IT Support Office, 2nd Floor"),
		CreatedBy:    ptr("student7"),
	},
	{
		Title:        "Keys with Keychain",
		Description:  "Set of keys with a small keychain. Found in the parking lot near Business Building.",
		Category:     "Keys",
		Lat:          37.5512,
		Lng:          127.0765,
		Radius:       30,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Security Office, Main Building"),
		CreatedBy:    ptr("student8"),
	},
	{
		Title:       "Water Bottle",
		Description: "Stainless steel water bottle with stickers. Found in the gymnasium locker room.",
		Category:    "Other",
		Lat:         37.5518,
		Lng:         127.0772,
		Radius:      25,
		Status:      model.ItemStatusPending,
		CreatedBy:   ptr("student9"),
	},
	{
		Title:        "Sunglasses",
		Description:  "Black Ray-Ban sunglasses in case. Found in the cafeteria.",
		Category:     "Other",
		Lat:          37.5506,
		Lng:          127.0758,
		Radius:       20,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Student Affairs Office, 1st Floor"),
		CreatedBy:    ptr("student10"),
	},
}

type sampleMessage struct {
	Nick, Text string
}

var sampleChat = []sampleMessage{
	{"student1", "Has anyone seen a black wallet? I lost it near the library."},
	{"admin1", "Please check the lost and found section. We have several items waiting to be claimed."},
	{"student2", "Found an iPhone! Already reported it. Check the map for location."},
	{"student3", "Thanks for the quick response! I found my backpack."},
	{"admin2", "Remember to update your contact information if you've lost something."},
	{"student4", "The system is really helpful! Found my student ID quickly."},
	{"student5", "Is there a way to get notifications when items are found?"},
	{"admin1", "We're working on adding notification features. Stay tuned!"},
	{"student6", "Lost my umbrella yesterday. Hope someone found it."},
	{"student7", "Great service! Very easy to use."},
}

// sampleThreads go one per item, to the first items created.
var sampleThreads = []sampleMessage{
	{"student2", "I think I saw this! When did you lose it?"},
	{"student1", "I lost it yesterday around 3 PM."},
	{"student3", "I'll check the location you mentioned."},
	{"admin1", "Thank you for reporting this!"},
	{"student4", "Is this still available?"},
}
