package reflow

import (
	"fmt"
)

func ExampleNewValue() {
	count := NewValue(0)
	fmt.Println(count.Read())

	count.Write(10)
	fmt.Println(count.Read())

	// Output:
	// 0
	// 10
}

func ExampleNewComputed() {
	count := NewValue(1)
	double := NewComputed(func() int {
		fmt.Println("doubling")
		return count.Read() * 2
	})
	plustwo := NewComputed(func() int {
		fmt.Println("adding")
		return double.Read() + 2
	})
	fmt.Println(count.Read())
	fmt.Println(double.Read())
	fmt.Println(plustwo.Read())

	count.Write(10)
	fmt.Println(count.Read())
	fmt.Println(double.Read())
	fmt.Println(plustwo.Read())

	// Output:
	// 1
	// doubling
	// 2
	// adding
	// 4
	// doubling
	// adding
	// 10
	// 20
	// 22
}

func ExampleNewObject() {
	cart := NewObject(map[string]any{
		"price": 3,
		"qty":   2,
		"total": func(o *Object) any {
			return o.Get("price").(int) * o.Get("qty").(int)
		},
	})

	cart.Node().OnFunc(func(ev *Event) {
		fmt.Println("total is now", cart.Get("total"))
	})

	fmt.Println(cart.Get("total"))

	Run(func() {
		cart.Set("price", 4)
		cart.Set("qty", 5)
	})

	// Output:
	// 6
	// total is now 20
}
